package export

import (
	"fmt"
	"strings"
)

type hl7Renderer struct{}

func (hl7Renderer) ContentType() string { return "x-application/hl7-v2+er7" }
func (hl7Renderer) Extension() string   { return ".hl7" }

// Render emits an ORU^R01 observation message with one OBX per candidate condition and NTE
// segments for the recommended actions.
func (hl7Renderer) Render(r Report) ([]byte, error) {
	ts := r.GeneratedAt.Format("20060102150405")
	patient := r.PatientID
	if patient == "" {
		patient = r.SessionID
	}

	segments := []string{
		fmt.Sprintf("MSH|^~\\&|MEDRAG|MEDRAG|||%s||ORU^R01|%s|P|2.5", ts, hl7Escape(r.SessionID)),
		fmt.Sprintf("PID|1||%s", hl7Escape(patient)),
		fmt.Sprintf("OBR|1||%s|DDX^Differential Diagnosis|||%s", hl7Escape(r.SessionID), ts),
	}
	for i, c := range r.Result.DifferentialDiagnosis {
		code := c.ICD10
		if code == "" {
			code = "UNK"
		}
		segments = append(segments, fmt.Sprintf("OBX|%d|NM|%s^%s^I10||%.1f|%%|||||F",
			i+1, hl7Escape(code), hl7Escape(c.Condition), c.Confidence))
	}
	for i, a := range r.Result.RecommendedActions {
		segments = append(segments, fmt.Sprintf("NTE|%d|L|%s (%s, %s)",
			i+1, hl7Escape(a.Text), a.Priority, a.Category))
	}

	return []byte(strings.Join(segments, "\r") + "\r"), nil
}

var hl7Escaper = strings.NewReplacer(
	`\`, `\E\`,
	`|`, `\F\`,
	`^`, `\S\`,
	`~`, `\R\`,
	`&`, `\T\`,
	"\r", " ",
	"\n", " ",
)

func hl7Escape(s string) string {
	return hl7Escaper.Replace(s)
}
