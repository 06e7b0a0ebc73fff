package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"attendance-scanner/internal/models"
)

const pocketbaseURL = "http://127.0.0.1:8090"

var httpClient = &http.Client{Timeout: 10 * time.Second}

// Usage: go run ./scripts/setup_collections [SRN...]
// Creates the participant collection and registers any SRNs given as arguments.
func main() {
	fmt.Println("🚀 PocketBase Participant Setup Script")
	fmt.Println("======================================")

	// Load .env file if exists
	godotenv.Load()

	url := getEnv("POCKETBASE_URL", pocketbaseURL)
	token := getEnv("POCKETBASE_TOKEN", "")

	fmt.Printf("Connecting to: %s\n", url)

	if err := checkHealth(url); err != nil {
		fmt.Printf("❌ Cannot connect to PocketBase: %v\n", err)
		fmt.Println("\nPlease check:")
		fmt.Println("1. Is PocketBase running at the specified URL?")
		fmt.Printf("2. Check with: curl %s/api/health\n", url)
		fmt.Println("3. For a local store: go run ./scripts/store serve")
		os.Exit(1)
	}

	if token == "" {
		fmt.Println("❌ POCKETBASE_TOKEN not set")
		fmt.Println("\nPlease set:")
		fmt.Println("  export POCKETBASE_TOKEN=your_token_here")
		fmt.Println("\nTo get token:")
		fmt.Printf("  curl -X POST %s/api/collections/_superusers/auth-with-password \\\n", url)
		fmt.Println("    -H \"Content-Type: application/json\" \\")
		fmt.Println("    -d '{\"identity\":\"admin@example.com\",\"password\":\"password123\"}'")
		os.Exit(1)
	}

	fmt.Println("✅ Using POCKETBASE_TOKEN from environment")

	if err := testAuth(url, token); err != nil {
		fmt.Printf("❌ Auth test failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\n📦 Creating collection: participant\n")
	if err := createCollection(url, token, "participant", participantFields()); err != nil {
		fmt.Printf("   ⚠️  %v\n", err)
	} else {
		fmt.Printf("   ✅ Created successfully\n")
	}

	if srns := os.Args[1:]; len(srns) > 0 {
		fmt.Printf("\n👤 Registering %d participants\n", len(srns))
		for _, srn := range srns {
			if err := createParticipant(url, token, srn); err != nil {
				fmt.Printf("   ⚠️  %s: %v\n", srn, err)
			} else {
				fmt.Printf("   ✅ %s\n", srn)
			}
		}
	}

	fmt.Println("\n🎉 Setup complete!")
	fmt.Printf("\nAccess Admin UI: %s/_/\n", url)
}

func participantFields() []map[string]interface{} {
	fields := []map[string]interface{}{createTextField("srn", true)}
	for _, c := range models.Categories {
		fields = append(fields, createFlagField(string(c)))
	}
	return fields
}

func testAuth(baseURL, token string) error {
	url := fmt.Sprintf("%s/api/collections", baseURL)
	req, _ := http.NewRequest("GET", url, nil)
	req.Header.Set("Authorization", token)

	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	fmt.Println("✅ Authentication successful")
	return nil
}

func createCollection(baseURL, token, name string, fields []map[string]interface{}) error {
	createURL := fmt.Sprintf("%s/api/collections", baseURL)

	createData := map[string]interface{}{
		"name":    name,
		"type":    "base",
		"fields":  fields,
		"indexes": []string{fmt.Sprintf("CREATE UNIQUE INDEX idx_%s_srn ON %s (srn)", name, name)},
	}

	jsonData, _ := json.Marshal(createData)
	req, _ := http.NewRequest("POST", createURL, bytes.NewBuffer(jsonData))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", token)

	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}

	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	// Check if already exists
	if resp.StatusCode == http.StatusBadRequest && (bytes.Contains(body, []byte("already exists")) || bytes.Contains(body, []byte("must be unique"))) {
		fmt.Printf("   Collection exists, attempting to update fields...\n")
		return updateCollectionFields(baseURL, token, name, fields)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("create failed: %s - %s", resp.Status, string(body))
	}

	fmt.Printf("   Created with %d fields\n", len(fields))
	return nil
}

func updateCollectionFields(baseURL, token, name string, fields []map[string]interface{}) error {
	getURL := fmt.Sprintf("%s/api/collections/%s", baseURL, name)
	req, _ := http.NewRequest("GET", getURL, nil)
	req.Header.Set("Authorization", token)

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to get collection: %v", err)
	}

	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	var existing struct {
		ID     string                   `json:"id"`
		Fields []map[string]interface{} `json:"fields"`
	}

	if err := json.Unmarshal(body, &existing); err != nil {
		return fmt.Errorf("failed to parse collection: %v", err)
	}

	newFields := missingFields(existing.Fields, fields)
	if len(newFields) == 0 {
		fmt.Printf("   All fields already exist\n")
		return nil
	}

	updateURL := fmt.Sprintf("%s/api/collections/%s", baseURL, name)
	updateData := map[string]interface{}{
		"fields": append(existing.Fields, newFields...),
	}

	jsonData, _ := json.Marshal(updateData)
	req, _ = http.NewRequest("PATCH", updateURL, bytes.NewBuffer(jsonData))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", token)

	resp, err = httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to update: %v", err)
	}

	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("update failed: %s - %s", resp.Status, string(body))
	}

	fmt.Printf("   Added %d new fields\n", len(newFields))
	return nil
}

// missingFields returns the wanted fields whose names are not in existing
func missingFields(existing, wanted []map[string]interface{}) []map[string]interface{} {
	have := make(map[string]bool)
	for _, f := range existing {
		if name, ok := f["name"].(string); ok {
			have[name] = true
		}
	}

	var out []map[string]interface{}
	for _, field := range wanted {
		if name, ok := field["name"].(string); ok && !have[name] {
			out = append(out, field)
		}
	}
	return out
}

func createParticipant(baseURL, token, srn string) error {
	url := fmt.Sprintf("%s/api/collections/participant/records", baseURL)
	jsonData, _ := json.Marshal(map[string]string{"srn": srn})

	req, _ := http.NewRequest("POST", url, bytes.NewBuffer(jsonData))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", token)

	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("create failed: %s - %s", resp.Status, string(body))
	}
	return nil
}

func createTextField(name string, required bool) map[string]interface{} {
	return map[string]interface{}{
		"name":        name,
		"type":        "text",
		"required":    required,
		"hidden":      false,
		"presentable": true,
		"system":      false,
		"min":         0,
		"max":         64,
	}
}

// createFlagField is a single-select whose only value is "done"
func createFlagField(name string) map[string]interface{} {
	return map[string]interface{}{
		"name":        name,
		"type":        "select",
		"required":    false,
		"hidden":      false,
		"presentable": false,
		"system":      false,
		"maxSelect":   1,
		"values":      []string{models.FlagDone},
	}
}

func checkHealth(baseURL string) error {
	resp, err := httpClient.Get(baseURL + "/api/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed: %s", resp.Status)
	}

	body, _ := io.ReadAll(resp.Body)
	fmt.Printf("✅ PocketBase is running: %s\n", string(body))
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
