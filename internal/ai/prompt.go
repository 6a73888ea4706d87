package ai

import (
	"fmt"

	"pixmonitor/internal/types"
)

// The summary must follow this exact section layout so the product team can
// scan alerts quickly. Section labels are part of the contract with the
// delivery format and must not drift between runs.
const promptTemplate = `Você é especialista em regulação do sistema de pagamentos brasileiro,
com foco no arranjo Pix. Analise a normativa abaixo e produza um resumo executivo
para o time de produto de uma instituição participante do Pix.

Normativo: %s nº %s
Título: %s
Data de publicação: %s
%s

Produza um resumo com EXATAMENTE este formato (máx. 350 palavras no total):

🎯 *O que mudou*: [1-2 frases diretas sobre o que a norma altera]

📌 *Impacto para o produto*: [bullet points com impactos concretos para o time de produto Pix]

⏰ *Prazo de adequação*: [datas e prazos mencionados, ou "Não especificado"]

🔗 *Para ler a norma completa*: %s

Seja objetivo, técnico e direto. Foque no que o time de produto PRECISA saber e fazer.`

// buildPrompt embeds the item metadata and the best available text. The
// output is deterministic for a given item and text, so reruns produce the
// same request.
func buildPrompt(item types.Regulation, fullText string) string {
	context := fmt.Sprintf("\nEmenta: %s", item.Abstract)
	if fullText != "" {
		context = fmt.Sprintf("\nTexto completo da norma:\n%s", fullText)
	}

	return fmt.Sprintf(promptTemplate,
		item.Type,
		item.Number,
		item.Title,
		item.PublishedAt,
		context,
		item.URL,
	)
}
