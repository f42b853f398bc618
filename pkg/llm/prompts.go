package llm

import (
	"fmt"
	"strings"
)

// Field is one section extracted from a court decision.
type Field string

const (
	FieldSummary    Field = "summary"
	FieldFacts      Field = "sachverhalt"
	FieldRuling     Field = "entscheid"
	FieldLegalBasis Field = "grundlagen"
)

// Fields lists the extracted sections in storage order.
func Fields() []Field {
	return []Field{FieldSummary, FieldFacts, FieldRuling, FieldLegalBasis}
}

const instructionPreamble = "Du bist eine deutschsprachige Textanalyse-KI aus der Schweiz." +
	" Die KI extrahiert Informationen aus Entscheidungsdokumenten von Gerichten und Behörden."

const instructionRules = " Es dürfen ausschliesslich Fakten wiedergegeben werden, die im Text explizit enthalten sind." +
	" Beantworte die Frage am Ende des Textes ausschliesslich auf Deutsch und ohne Umschweife." +
	" Führe keine Konversation und stelle keine Fragen. Deine Antwort wird direkt in eine Datenbank gespeichert."

type fieldPrompt struct {
	task     string
	heading  string
	question string
}

var fieldPrompts = map[Field]fieldPrompt{
	FieldSummary: {
		task:     " Deine Aufgabe ist es, folgendes Gerichtsurteil oder Dokument präzise und wahrheitsgemäss zusammenzufassen.",
		heading:  "ZUSAMMENFASSUNG",
		question: "Wie lautet die Zusammenfassung basierend ausschliesslich auf dem vorangehenden Text?",
	},
	FieldFacts: {
		task: " Deine Aufgabe ist es, den Sachverhalt von folgendem Gerichtsurteil oder Dokument präzise und wahrheitsgemäss zu extrahieren." +
			" Extrahiere den Sachverhalt dieses Falles detailliert, ohne dabei Informationen hinzuzufügen oder wegzulassen.",
		heading:  "EXTRAKTION DES SACHVERHALTS",
		question: "Wie lautet der Sachverhalt basierend ausschliesslich auf dem vorangehenden Text?",
	},
	FieldRuling: {
		task: " Deine Aufgabe ist es, die getroffene Entscheidung von folgendem Gerichtsurteil oder Dokument präzise und wahrheitsgemäss zu extrahieren." +
			" Extrahiere die Entscheidung dieses Falles detailliert, ohne dabei Informationen hinzuzufügen oder wegzulassen.",
		heading: "EXTRAKTION DES ENTSCHEIDS",
		question: "Wie wurde entschieden basierend ausschliesslich auf dem vorangehenden Text?" +
			" Wurde der Kläger oder der Beklagte in seinem Anliegen recht gegeben? Warum?",
	},
	FieldLegalBasis: {
		task: " Deine Aufgabe ist es, die Rechtsgrundlage von folgendem Gerichtsurteil präzise und wahrheitsgemäss zu extrahieren." +
			" Extrahiere die Rechtsgrundlage dieses Falles detailliert, ohne dabei Informationen hinzuzufügen oder wegzulassen.",
		heading: "EXTRAKTION DER RECHTSGRUNDLAGE",
		question: "Was ist die Rechtsgrundlage dieses Falls basierend ausschliesslich auf dem vorangehenden Text?" +
			" Liste die relevanten Gesetze, Verordnungen und Präzedenzfälle auf, die im Text explizit enthalten sind.",
	},
}

// FieldMessages builds the single user message asking the model to extract field from decision.
func FieldMessages(field Field, decision string) ([]Message, error) {
	p, ok := fieldPrompts[field]
	if !ok {
		return nil, fmt.Errorf("unknown field %q", field)
	}
	var b strings.Builder
	b.WriteString("<INSTRUKTIONEN>\n")
	b.WriteString(instructionPreamble)
	b.WriteString(p.task)
	b.WriteString(instructionRules)
	b.WriteString("\n<ENDE DER INSTRUKTIONEN>\n\n<ANFANG DES ENTSCHEIDUNGSDOKUMENTS>\n")
	b.WriteString(decision)
	b.WriteString("\n<ENDE DES ENTSCHEIDUNGSDOKUMENTS>\n\n<")
	b.WriteString(p.heading)
	b.WriteString(">\n")
	b.WriteString(p.question)
	return []Message{{Role: "user", Content: b.String()}}, nil
}

// AnswerMessages grounds a free-text answer in retrieved search context.
func AnswerMessages(question, context string) []Message {
	system := "Du bist ein juristischer Rechercheassistent aus der Schweiz." +
		" Beantworte die Frage ausschliesslich anhand der folgenden Entscheide und Gesetzesartikel." +
		" Nenne die verwendeten Quellen. Wenn die Quellen keine Antwort enthalten, sage das.\n\n" +
		"<QUELLEN>\n" + context + "\n</QUELLEN>"
	return []Message{
		{Role: "system", Content: system},
		{Role: "user", Content: question},
	}
}
