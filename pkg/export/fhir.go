package export

import (
	"encoding/json"
	"fmt"
	"time"
)

const icd10System = "http://hl7.org/fhir/sid/icd-10-cm"

type fhirCoding struct {
	System  string `json:"system,omitempty"`
	Code    string `json:"code,omitempty"`
	Display string `json:"display,omitempty"`
}

type fhirConcept struct {
	Coding []fhirCoding `json:"coding,omitempty"`
	Text   string       `json:"text,omitempty"`
}

type fhirReference struct {
	Reference string `json:"reference"`
}

type fhirExtension struct {
	URL          string  `json:"url"`
	ValueDecimal float64 `json:"valueDecimal"`
}

type fhirConclusion struct {
	fhirConcept
	Extension []fhirExtension `json:"extension,omitempty"`
}

type diagnosticReport struct {
	ResourceType   string           `json:"resourceType"`
	ID             string           `json:"id"`
	Status         string           `json:"status"`
	Code           fhirConcept      `json:"code"`
	Subject        *fhirReference   `json:"subject,omitempty"`
	Issued         string           `json:"issued"`
	Conclusion     string           `json:"conclusion,omitempty"`
	ConclusionCode []fhirConclusion `json:"conclusionCode,omitempty"`
}

type fhirRenderer struct{}

func (fhirRenderer) ContentType() string { return "application/fhir+json" }
func (fhirRenderer) Extension() string   { return ".json" }

// Render produces a FHIR R4 DiagnosticReport; each candidate condition becomes a conclusion code
// carrying its confidence as an extension.
func (fhirRenderer) Render(r Report) ([]byte, error) {
	report := diagnosticReport{
		ResourceType: "DiagnosticReport",
		ID:           r.SessionID,
		Status:       "preliminary",
		Code:         fhirConcept{Text: "Differential diagnosis"},
		Issued:       r.GeneratedAt.Format(time.RFC3339),
	}
	if r.PatientID != "" {
		report.Subject = &fhirReference{Reference: "Patient/" + r.PatientID}
	}
	if top, ok := r.Result.TopCondition(); ok {
		report.Conclusion = fmt.Sprintf("Most likely: %s (%.1f%%)", top.Condition, top.Confidence)
	}

	for _, c := range r.Result.DifferentialDiagnosis {
		concept := fhirConcept{Text: c.Condition}
		if c.ICD10 != "" {
			concept.Coding = []fhirCoding{{System: icd10System, Code: c.ICD10, Display: c.Condition}}
		}
		report.ConclusionCode = append(report.ConclusionCode, fhirConclusion{
			fhirConcept: concept,
			Extension: []fhirExtension{{
				URL:          "urn:medrag:confidence",
				ValueDecimal: c.Confidence,
			}},
		})
	}

	return json.MarshalIndent(report, "", "  ")
}
