// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package insight

import (
	"fmt"
	"strings"

	"github.com/jeranaias/fipepro/internal/model"
)

// SystemInstruction is the fixed advisor persona.
const SystemInstruction = "Você é um consultor automotivo brasileiro experiente, " +
	"especialista no mercado de veículos novos e usados e na Tabela FIPE. " +
	"Seja objetivo, analítico e imparcial."

// Placeholder texts shown instead of commentary.
const (
	FallbackText = "Não foi possível gerar um insight no momento."
	ErrorText    = "Ocorreu um erro ao consultar o especialista de IA."
)

// BuildPrompt renders the prompt for result. An empty location scopes the
// analysis to the national market.
func BuildPrompt(result model.PricedResult, location string) string {
	location = strings.TrimSpace(location)
	scope := "Considere o mercado nacional brasileiro."
	if location != "" {
		scope = fmt.Sprintf("Considere especificamente o mercado na região de %q para esta análise.", location)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Analise de forma analítica e profissional o veículo %s %s ano %s (Valor FIPE: %s).\n",
		result.Brand, result.Model, result.YearLabel(), result.Price)
	b.WriteString(scope)
	b.WriteString("\nFale sobre:\n")
	b.WriteString("1. Tendência de desvalorização para este modelo específico.\n")
	b.WriteString("2. Liquidez no mercado de usados na região informada (ou nacional se não informada).\n")
	b.WriteString("3. Custo-benefício da manutenção e confiabilidade.\n")
	b.WriteString("Responda em português de forma concisa e direta em tópicos curtos.")
	return b.String()
}
