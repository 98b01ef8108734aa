package pdfbill

import "regexp"

// fieldPattern binds an output field to an ordered list of candidate
// expressions. The first expression that matches anywhere in the bill text
// wins; within that expression the last occurrence wins, because bills
// repeat header labels and the totals block comes last.
type fieldPattern struct {
	name     string
	patterns []*regexp.Regexp
}

var fieldPatterns = []fieldPattern{
	{"numero_instalacao", []*regexp.Regexp{
		regexp.MustCompile(`(?i)instala[çc][aã]o[:\s]*([\d.]+)`),
		regexp.MustCompile(`(?i)n[úu]mero\s+da\s+instala[çc][aã]o[:\s]*([\d.]+)`),
	}},
	{"numero_cliente", []*regexp.Regexp{
		regexp.MustCompile(`(?i)n[úu]mero\s+do\s+cliente[:\s]*([\d.]+)`),
		regexp.MustCompile(`(?i)c[óo]digo\s+do\s+cliente[:\s]*([\d.]+)`),
	}},
	{"mes_referencia", []*regexp.Regexp{
		regexp.MustCompile(`(?i)conta\s*/?\s*m[eê]s[:\s]*([0-9/\-]+)`),
		regexp.MustCompile(`(?i)refer[êe]ncia[:\s]*([0-9/\-]+)`),
	}},
	{"vencimento", []*regexp.Regexp{
		regexp.MustCompile(`(?i)vencimento[:\s]*([\d/\-]+)`),
		regexp.MustCompile(`(?i)data\s+de\s+vencimento[:\s]*([\d/\-]+)`),
	}},
	{"valor_total", []*regexp.Regexp{
		regexp.MustCompile(`(?i)total\s+a\s+pagar[:\s]*(?:r\$\s*)?([\d.,]+)`),
		regexp.MustCompile(`(?i)valor\s+total\s+da\s+conta[:\s]*(?:r\$\s*)?([\d.,]+)`),
	}},
	{"consumo_kwh", []*regexp.Regexp{
		regexp.MustCompile(`(?i)consumo.*?([\d.,]+)\s*kwh`),
		regexp.MustCompile(`(?i)quant\.?\s*consumida[:\s]*([\d.,]+)`),
	}},
	{"quantidade_faturada", []*regexp.Regexp{
		regexp.MustCompile(`(?i)quant\.?\s*faturad[ao][:\s]*([\d.,]+)`),
	}},
	{"tarifa_com_tributos", []*regexp.Regexp{
		regexp.MustCompile(`(?i)tarifa\s+com\s+tributos[:\s]*(?:r\$\s*)?([\d.,]+)`),
	}},
	{"valor_total_operacao", []*regexp.Regexp{
		regexp.MustCompile(`(?i)valor\s+total\s+da\s+opera[cç][aã]o[:\s]*(?:r\$\s*)?([\d.,]+)`),
	}},
	{"bandeira_tarifaria", []*regexp.Regexp{
		regexp.MustCompile(`(?i)bandeira\s+tarif[áa]ria[:\s]*([\w ]+)`),
	}},
	{"tusd", []*regexp.Regexp{
		regexp.MustCompile(`(?i)tusd[:\s]*([\d.,]+)`),
	}},
	{"te", []*regexp.Regexp{
		regexp.MustCompile(`(?i)t[eé][\s:]*([\d.,]+)`),
	}},
	{"icms", []*regexp.Regexp{
		regexp.MustCompile(`(?i)icms[:\s]*([\d.,]+)`),
	}},
	{"pis_cofins", []*regexp.Regexp{
		regexp.MustCompile(`(?i)pis/?cofins[:\s]*([\d.,]+)`),
	}},
	{"endereco_uc", []*regexp.Regexp{
		regexp.MustCompile(`(?i)endere[çc]o\s+da\s+unidade\s+consumidora[:\s]*(.+)`),
	}},
	{"status_pagamento", []*regexp.Regexp{
		regexp.MustCompile(`(?i)status\s+do\s+pagamento[:\s]*(.+)`),
	}},
	{"link_pdf", []*regexp.Regexp{
		regexp.MustCompile(`(?i)https?://\S+`),
	}},
}

// enderecoBlock catches addresses that wrap across lines when the
// single-line pattern comes up empty. The block ends at a blank line or at
// the next known label.
var enderecoBlock = regexp.MustCompile(`(?is)endereço\s+da\s+unidade\s+consumidora[:\s]*(.+?)(?:\n\s*\n|status|valor total)`)
