package letter

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

const template = `[Vorname] [Nachname]
[EigeneStraße]
[EigenePLZ] [EigenerOrt]

[AnbieterName]
[AnbieterStraße]
[AnbieterPLZOrt]

[EigenerOrt], [Datum]

Kündigung meines Vertrags
Kundennummer: [Kundennummer]
Vertragsnummer: [Vertragsnummer]

Sehr geehrte Damen und Herren,
hiermit kündige ich fristgerecht.`

func TestDefaultValues(t *testing.T) {
	v := DefaultValues(time.Date(2024, 3, 9, 15, 0, 0, 0, time.UTC))
	assert.Equal(t, "09.03.2024", v["Datum"])
	assert.Len(t, v, len(Keys))
	assert.Empty(t, v["Vorname"])
}

func TestFill_RemovesContractNumberLine(t *testing.T) {
	v := DefaultValues(time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC))
	v["Vorname"] = "Erika"
	v["Nachname"] = "Mustermann"
	v["Kundennummer"] = "K-123"

	out := Fill(template, v)

	assert.NotContains(t, out, "Vertragsnummer")
	assert.Contains(t, out, "Erika Mustermann\n")
	assert.Contains(t, out, "Kundennummer: K-123\n\nSehr geehrte")
	assert.Contains(t, out, "[EigenerOrt], 09.03.2024")
}

func TestFill_KeepsContractNumber(t *testing.T) {
	v := Values{"Vertragsnummer": "V-42"}
	out := Fill(template, v)
	assert.Contains(t, out, "Vertragsnummer: V-42\n")
}

func TestFill_EmptyValuesLeaveTokens(t *testing.T) {
	out := Fill(template, Values{"Vertragsnummer": "V-1", "Kundennummer": ""})
	assert.Contains(t, out, "[Kundennummer]")
	assert.ElementsMatch(t,
		[]string{"AnbieterName", "AnbieterStraße", "AnbieterPLZOrt", "Vorname", "Nachname",
			"EigeneStraße", "EigenePLZ", "EigenerOrt", "Datum", "Kundennummer"},
		Missing(out))
}

func TestFill_ContractLineAtEnd(t *testing.T) {
	out := Fill("Hallo\nVertragsnummer: [Vertragsnummer]", Values{})
	assert.Equal(t, "Hallo\n", out)
}

func TestMailtoURL(t *testing.T) {
	got := MailtoURL("Sehr geehrte Damen & Herren\nKündigung")
	assert.True(t, strings.HasPrefix(got, "mailto:?subject=K%C3%BCndigungsschreiben&body="))
	assert.Contains(t, got, "Sehr%20geehrte%20Damen%20%26%20Herren%0AK%C3%BCndigung")
	assert.NotContains(t, got, "+")
}

func TestEncodeComponent(t *testing.T) {
	tests := map[string]string{
		"Kündigung":       "K%C3%BCndigung",
		"a b\nc":          "a%20b%0Ac",
		"Hallo! (bitte)*": "Hallo!%20(bitte)*",
		"it's ~ok_-.":     "it's%20~ok_-.",
		"a&b=c+d?e#f/g":   "a%26b%3Dc%2Bd%3Fe%23f%2Fg",
		"100%":            "100%25",
	}
	for in, want := range tests {
		assert.Equal(t, want, encodeComponent(in), "input %q", in)
	}
}

func TestWritePDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultPDFName)
	require.NoError(t, WritePDF(path, strings.Repeat("Sehr geehrte Damen und Herren, hiermit kündige ich. ", 40)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")), "not a PDF file")
}

type fakeSender struct {
	sent []*gomail.Message
	err  error
}

func (f *fakeSender) DialAndSend(m ...*gomail.Message) error {
	f.sent = append(f.sent, m...)
	return f.err
}

func TestMailer_Send(t *testing.T) {
	fs := &fakeSender{}
	m := NewMailerWithSender(fs, "me@example.org", "default@example.org")

	require.NoError(t, m.Send("", MailSubject, "Hallo", ""))
	require.Len(t, fs.sent, 1)

	msg := fs.sent[0]
	assert.Equal(t, []string{"default@example.org"}, msg.GetHeader("To"))
	assert.Equal(t, []string{"me@example.org"}, msg.GetHeader("From"))

	var buf bytes.Buffer
	_, err := msg.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Hallo")
}

func TestMailer_Errors(t *testing.T) {
	m := NewMailerWithSender(&fakeSender{}, "me@example.org", "")
	assert.ErrorIs(t, m.Send("", "s", "b", ""), ErrNoRecipient)

	boom := errors.New("connection refused")
	m = NewMailerWithSender(&fakeSender{err: boom}, "me@example.org", "")
	assert.ErrorIs(t, m.Send("you@example.org", "s", "b", ""), boom)
}
