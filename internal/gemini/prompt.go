package gemini

import (
	"fmt"
	"strings"
)

// ContractTypes are the contract kinds offered when generating a letter.
var ContractTypes = []string{
	"Handyvertrag",
	"Streamingdienst",
	"Fitnessstudio",
	"Versicherung",
	"Sonstiges",
}

// Placeholders lists the tokens the generated template must use, in order.
var Placeholders = []string{
	"AnbieterName",
	"AnbieterStraße",
	"AnbieterPLZOrt",
	"Vorname",
	"Nachname",
	"EigeneStraße",
	"EigenePLZ",
	"EigenerOrt",
	"Datum",
	"Kundennummer",
	"Vertragsnummer",
}

// BuildPrompt returns the German instruction for a formal cancellation
// letter of the given contract type, including the user's extra wish.
func BuildPrompt(contractType, hint string) string {
	tokens := make([]string, len(Placeholders))
	for i, p := range Placeholders {
		tokens[i] = "[" + p + "]"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Erstelle ein formelles Kündigungsschreiben für einen %s. ", contractType)
	fmt.Fprintf(&b, "Berücksichtige diesen zusätzlichen Wunsch des Nutzers: \"%s\". ", hint)
	b.WriteString("Das Schreiben soll in einem professionellen und höflichen Ton verfasst sein. ")
	fmt.Fprintf(&b, "Verwende exakt die folgenden Platzhalter und keine anderen: %s. ", strings.Join(tokens, ", "))
	b.WriteString(`Platziere die Vertragsnummer auf einer eigenen Zeile, zum Beispiel als "Vertragsnummer: [Vertragsnummer]", `)
	b.WriteString("damit sie bei Bedarf weggelassen werden kann. ")
	b.WriteString("Gib nur den Text des Schreibens ohne weitere Erklärungen oder Formatierungen zurück.")
	return b.String()
}
