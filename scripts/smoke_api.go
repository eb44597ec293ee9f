//go:build ignore

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/fatih/color"
)

var baseURL = envOr("MEDRAG_API", "http://localhost:8000/api/v1")

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func prettyPrint(v interface{}) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("%v\n", v)
		return
	}
	fmt.Println(string(b))
}

func sendRequest(method, url string, body interface{}) (*http.Response, map[string]interface{}, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, baseURL+url, bodyReader)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token := os.Getenv("MEDRAG_TOKEN"); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp, nil, err
	}
	var out map[string]interface{}
	_ = json.Unmarshal(raw, &out)
	return resp, out, nil
}

func step(title, method, url string, body interface{}) map[string]interface{} {
	color.Yellow("\n%s", title)
	resp, out, err := sendRequest(method, url, body)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	if resp.StatusCode >= 400 {
		color.Red("Status: %s", resp.Status)
	} else {
		color.Green("Status: %s", resp.Status)
	}
	prettyPrint(out)
	return out
}

func main() {
	color.Cyan("🚀 MedRAG API smoke test against %s\n", baseURL)

	step("1. Health", "GET", "/health", nil)
	step("2. Stats", "GET", "/stats", nil)

	started := step("3. Start diagnosis", "POST", "/diagnosis/start", map[string]interface{}{
		"complaints": []string{"fever for three days"},
		"symptoms":   []string{"fever", "cough", "dyspnea"},
		"vitals":     map[string]interface{}{"hr": 104, "bp": "118/76", "temp": 38.9},
	})
	data, _ := started["data"].(map[string]interface{})
	sessionID, _ := data["sessionId"].(string)
	if sessionID == "" {
		color.Red("No session id returned")
		os.Exit(1)
	}

	color.Yellow("\n4. Polling %s", sessionID)
	for i := 0; i < 60; i++ {
		_, out, err := sendRequest("GET", "/diagnosis/"+sessionID, nil)
		if err != nil {
			color.Red("Failed: %v", err)
			os.Exit(1)
		}
		status, _ := out["data"].(map[string]interface{})
		fmt.Printf("  phase=%v progress=%v\n", status["phase"], status["progress"])
		if status["status"] != "processing" {
			prettyPrint(status)
			break
		}
		time.Sleep(time.Second)
	}

	step("5. Summary", "GET", "/diagnosis/"+sessionID+"/summary", nil)
	step("6. Export JSON", "POST", "/diagnosis/"+sessionID+"/export", map[string]interface{}{"format": "json"})
	step("7. Feedback", "POST", "/diagnosis/"+sessionID+"/feedback", map[string]interface{}{"rating": "positive"})
	step("8. Session graph", "GET", "/kg/"+sessionID, nil)
	step("9. Similar cases", "GET", "/cases/search?q=fever%20cough&k=3", nil)

	color.Cyan("\n✅ Smoke test finished")
}
