package reasoning

import (
	"encoding/json"
	"fmt"
	"strings"

	"medrag-be/pkg/knowledgegraph"
	"medrag-be/pkg/similarity"
)

const (
	promptCaseLimit    = 3
	promptTripletLimit = 5
)

const promptInstructions = `
INSTRUCTIONS:
1. Provide a differential diagnosis with the top 5 most likely conditions
2. For each condition, include: name, confidence score (0-100), description, and ICD-10 code if known
3. Recommend specific diagnostic actions (labs, imaging, etc.) with priority levels
4. Suggest 3 follow-up questions to gather more information
5. Return response in the specified JSON format only.
`

// BuildContext renders the prompt. Identical inputs always produce identical text.
func BuildContext(patient PatientData, cases []similarity.CaseMatch, triplets []knowledgegraph.ScoredTriplet) string {
	var b strings.Builder

	b.WriteString("You are an expert medical AI assistant. Analyze the following patient case and provide a differential diagnosis.\n\n")
	b.WriteString("PATIENT INFORMATION:\n")
	fmt.Fprintf(&b, "Complaints: %s\n", strings.Join(patient.Complaints, ", "))
	fmt.Fprintf(&b, "Symptoms: %s\n", strings.Join(patient.Symptoms, ", "))

	if !patient.Vitals.Empty() {
		fmt.Fprintf(&b, "Vitals: %s\n", indentJSON(patient.Vitals))
	}
	if len(patient.History) > 0 {
		fmt.Fprintf(&b, "Medical History: %s\n", indentJSON(patient.History))
	}

	if len(cases) > 0 {
		b.WriteString("\nSIMILAR CASES FROM DATABASE:\n")
		for i, c := range cases {
			if i == promptCaseLimit {
				break
			}
			fmt.Fprintf(&b, "%d. Case %s: %s (Similarity: %.1f%%)\n", i+1, c.CaseID, c.Diagnosis, c.Similarity)
			fmt.Fprintf(&b, "   Symptoms: %s\n", strings.Join(c.Symptoms, ", "))
			fmt.Fprintf(&b, "   Outcome: %s\n", c.Outcome)
		}
	}

	if len(triplets) > 0 {
		b.WriteString("\nRELEVANT MEDICAL KNOWLEDGE:\n")
		for i, t := range triplets {
			if i == promptTripletLimit {
				break
			}
			fmt.Fprintf(&b, "- %s\n", t.Triplet.String())
		}
	}

	b.WriteString(promptInstructions)
	return b.String()
}

// indentJSON relies on encoding/json sorting map keys, which keeps the prompt stable.
func indentJSON(v interface{}) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
