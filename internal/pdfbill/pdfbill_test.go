package pdfbill

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleBill = `CPFL PAULISTA
Instalação: 4.001.234
Número do Cliente: 778.899
Conta/Mês: 01/2024
Vencimento: 05/02/2024
Endereço da Unidade Consumidora: Rua das Flores, 100 - Campinas/SP

Consumo 150,5 kWh
Quant. Faturada: 150,5
Tarifa com Tributos: R$ 0,654321
Bandeira Tarifária: Verde
TUSD: 45,10
TE: 38,22
ICMS: 21,07
PIS/COFINS: 8,15
Valor Total da Operação: 123,45
Total a Pagar: R$ 123,45
Status do Pagamento: Pago
https://servicosonline.cpfl.com.br/fatura/202401123.pdf
`

func TestParse(t *testing.T) {
	parsed := Parse(sampleBill)
	fields := parsed.Fields

	assert.Equal(t, "4001234", fields["numero_instalacao"])
	assert.Equal(t, "778899", fields["numero_cliente"])
	assert.Equal(t, "01/2024", fields["mes_referencia"])
	assert.Equal(t, "05/02/2024", fields["vencimento"])
	assert.Equal(t, "123.45", fields["valor_total"])
	assert.Equal(t, "150.5", fields["consumo_kwh"])
	assert.Equal(t, "150.5", fields["quantidade_faturada"])
	assert.Equal(t, "0.65432", fields["tarifa_com_tributos"]) // five places, half-up
	assert.Equal(t, "Verde", fields["bandeira_tarifaria"])
	assert.Equal(t, "45.10", fields["tusd"])
	assert.Equal(t, "38.22", fields["te"])
	assert.Equal(t, "21.07", fields["icms"])
	assert.Equal(t, "8.15", fields["pis_cofins"])
	assert.Equal(t, "123.45", fields["valor_total_operacao"])
	assert.Equal(t, "Rua das Flores, 100 - Campinas/SP", fields["endereco_uc"])
	assert.Equal(t, "Pago", fields["status_pagamento"])
	assert.Equal(t, "https://servicosonline.cpfl.com.br/fatura/202401123.pdf", fields["link_pdf"])
}

// Labels repeat on real bills; the occurrence in the totals block, which
// comes last, wins.
func TestParseLastOccurrenceWins(t *testing.T) {
	text := "Total a Pagar: 0,00\nresumo\nTotal a Pagar: R$ 321,09\n"
	fields := Parse(text).Fields
	assert.Equal(t, "321.09", fields["valor_total"])
}

// The label pattern eats leading newlines, so a wrapped address still
// yields its first line.
func TestParseAddressOnFollowingLine(t *testing.T) {
	text := "Endereço da Unidade Consumidora:\nRua das Flores, 100\nBairro Centro - Campinas/SP\n\nValor Total da Conta: 99,00\n"
	fields := Parse(text).Fields
	assert.Equal(t, "Rua das Flores, 100", fields["endereco_uc"])
	assert.Equal(t, "99.00", fields["valor_total"])
}

func TestParseMissingFieldsAbsent(t *testing.T) {
	fields := Parse("documento sem campos reconheciveis").Fields
	_, ok := fields["valor_total"]
	assert.False(t, ok)
	_, ok = fields["vencimento"]
	assert.False(t, ok)
}

func TestParseKeepsRawWhenUnparseable(t *testing.T) {
	// A month the regional parser rejects stays as captured.
	text := "Referência: 99/2024\n"
	fields := Parse(text).Fields
	require.Contains(t, fields, "mes_referencia")
	assert.Equal(t, "99/2024", fields["mes_referencia"])
}
