package payload

import (
	"sort"
	"strings"

	"cpfl/internal/logger"
	"cpfl/internal/normalize"
)

// Key-name synonym sets observed across provider payload revisions. Keys
// are compared after normalize.Key.
var (
	monthKeys = keySet(
		"mesreferencia", "mesref", "mescompetencia", "mes", "mesreferecia", "competencia",
	)
	dueKeys = keySet(
		"datavencimento", "vencimento", "data_vencimento", "datavcto", "dataultimovencimento",
	)
	valueKeys = keySet(
		"valor", "valorfatura", "valorconta", "valortotal", "valor_total", "valordocumento",
	)
	consumptionKeys = keySet(
		"consumo", "consumokwh", "quantidade", "quantidadefaturada", "kwh",
	)
	accountKeys = keySet(
		"numerodocumento", "numeroconta", "contaid", "conta", "idconta", "documentoid", "numerofatura",
	)
	statusKeys = keySet(
		"situacao", "status", "statuspagamento", "statusfatura", "descricao",
	)
	installationKeys = keySet("instalacaoreal", "instalacao", "instalacaofisica")
	documentKeys     = keySet("documento", "cpfcnpj", "cpf", "cnpj")
	linkKeys         = keySet("pdf", "link", "url", "arquivo", "documento")
)

// extraFields is the allow-list of fields preserved verbatim alongside the
// canonical set, independent of the admission gate.
var extraFields = []string{"NumeroCliente", "ParceiroNegocio", "ContaContrato"}

func keySet(keys ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[normalize.Key(k)] = struct{}{}
	}
	return set
}

// ParsePaidHistory extracts invoice records from a contas-quitadas payload.
func ParsePaidHistory(doc any, uc string) []Record {
	return parseHistory(doc, uc, "quitada")
}

// ParseStatusHistory extracts invoice records from a validar-situacao payload.
func ParseStatusHistory(doc any, uc string) []Record {
	return parseHistory(doc, uc, "aberta")
}

func parseHistory(doc any, uc, tipo string) []Record {
	log := logger.WithComponent("payload")
	var records []Record
	for _, block := range invoiceBlocks(doc) {
		for _, item := range block {
			if record, ok := buildRecord(item, uc, tipo); ok {
				records = append(records, record)
			} else {
				log.Debug().Str("uc", uc).Str("tipo", tipo).Msg("candidate discarded by admission gate")
			}
		}
	}
	log.Info().Str("uc", uc).Str("tipo", tipo).Int("records", len(records)).Msg("payload extraction finished")
	return records
}

// invoiceBlocks walks the decoded payload with an explicit stack (payloads
// can nest deeply, recursion depth is not bounded by us) and collects every
// list of objects where at least one element looks like an invoice. A
// yielded block is not traversed further so nested structures are not
// extracted twice.
func invoiceBlocks(root any) [][]map[string]any {
	var blocks [][]map[string]any
	stack := []any{root}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		switch node := current.(type) {
		case map[string]any:
			for _, value := range node {
				stack = append(stack, value)
			}
		case []any:
			if items, ok := objectList(node); ok && listContainsInvoice(items) {
				blocks = append(blocks, items)
				continue
			}
			stack = append(stack, node...)
		}
	}
	return blocks
}

func objectList(list []any) ([]map[string]any, bool) {
	if len(list) == 0 {
		return nil, false
	}
	items := make([]map[string]any, 0, len(list))
	for _, element := range list {
		item, ok := element.(map[string]any)
		if !ok {
			return nil, false
		}
		items = append(items, item)
	}
	return items, true
}

func listContainsInvoice(items []map[string]any) bool {
	for _, item := range items {
		if looksLikeInvoice(item) {
			return true
		}
	}
	return false
}

// looksLikeInvoice fingerprints an object's key set against the month,
// due-date, value and account synonym sets, recursing into nested objects.
func looksLikeInvoice(item map[string]any) bool {
	for key := range item {
		normalized := normalize.Key(key)
		if _, ok := monthKeys[normalized]; ok {
			return true
		}
		if _, ok := dueKeys[normalized]; ok {
			return true
		}
		if _, ok := valueKeys[normalized]; ok {
			return true
		}
		if _, ok := accountKeys[normalized]; ok {
			return true
		}
	}
	for _, value := range item {
		if nested, ok := value.(map[string]any); ok && looksLikeInvoice(nested) {
			return true
		}
	}
	return false
}

func buildRecord(item map[string]any, uc, tipo string) (Record, bool) {
	record := Record{
		UC:             uc,
		Tipo:           tipo,
		MesReferencia:  normalize.Month(findValue(item, monthKeys)),
		Vencimento:     normalize.Date(findValue(item, dueKeys)),
		Valor:          normalize.Decimal(findValue(item, valueKeys)),
		ConsumoKWH:     normalize.Consumption(findValue(item, consumptionKeys)),
		ContaID:        normalize.Stringify(findValue(item, accountKeys)),
		Status:         normalize.Stringify(findValue(item, statusKeys)),
		InstalacaoReal: normalize.Stringify(findValue(item, installationKeys)),
		Documento:      normalize.Stringify(findValue(item, documentKeys)),
		Extras:         collectExtras(item),
		PDFHints:       collectPDFHints(item),
	}

	// Admission gate: a candidate with none of these is not an invoice.
	if record.MesReferencia == "" && record.Vencimento == "" && record.Valor == "" && record.ContaID == "" {
		return Record{}, false
	}
	return record, true
}

// findValue searches the item breadth-first for the first key whose
// normalized name is in the set, preferring a scalar value; container
// values are reduced to a representative scalar when one exists.
func findValue(item any, keys map[string]struct{}) any {
	queue := []any{item}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		switch node := current.(type) {
		case map[string]any:
			for key, value := range node {
				if _, ok := keys[normalize.Key(key)]; ok {
					switch value.(type) {
					case map[string]any, []any:
						if inner := scalarFromNested(value); inner != "" {
							return inner
						}
					default:
						return value
					}
				}
				queue = append(queue, value)
			}
		case []any:
			queue = append(queue, node...)
		}
	}
	return nil
}

func scalarFromNested(value any) string {
	switch node := value.(type) {
	case string, float64, int, int64:
		return normalize.Stringify(node)
	case []any:
		for _, element := range node {
			if extracted := scalarFromNested(element); extracted != "" {
				return extracted
			}
		}
	case map[string]any:
		for _, element := range node {
			if extracted := scalarFromNested(element); extracted != "" {
				return extracted
			}
		}
	}
	return ""
}

func collectExtras(item map[string]any) map[string]string {
	extras := map[string]string{}
	for _, field := range extraFields {
		normalized := normalize.Key(field)
		if value := findValue(item, map[string]struct{}{normalized: {}}); value != nil {
			if text := normalize.Stringify(value); text != "" {
				extras[normalized] = text
			}
		}
	}
	return extras
}

// collectPDFHints harvests document-link strings: string values under a
// link-synonym key, or any bare string anywhere, that contain "pdf"
// case-insensitively. The result is deduplicated and sorted.
func collectPDFHints(item map[string]any) []string {
	seen := map[string]struct{}{}
	stack := []any{item}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		switch node := current.(type) {
		case map[string]any:
			for key, value := range node {
				if text, ok := value.(string); ok {
					if _, linkKey := linkKeys[normalize.Key(key)]; linkKey && containsPDF(text) {
						seen[text] = struct{}{}
					}
				}
				stack = append(stack, value)
			}
		case []any:
			stack = append(stack, node...)
		case string:
			if containsPDF(node) {
				seen[node] = struct{}{}
			}
		}
	}
	if len(seen) == 0 {
		return nil
	}
	hints := make([]string, 0, len(seen))
	for hint := range seen {
		hints = append(hints, hint)
	}
	sort.Strings(hints)
	return hints
}

func containsPDF(text string) bool {
	return strings.Contains(strings.ToLower(text), "pdf")
}
