package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// ContributionRow одна строка CSV: vegetable,price,location,submitted_by
type ContributionRow struct {
	Line        int
	Vegetable   string
	Price       float64
	Location    string
	SubmittedBy string
}

type contributionPayload struct {
	Vegetable   string  `json:"vegetable"`
	Price       float64 `json:"price"`
	Location    string  `json:"location"`
	SubmittedBy string  `json:"submitted_by"`
}

const (
	defaultServiceURL = "http://localhost:8080"
	defaultAuthor     = "csv-import"

	// пауза между запросами, чтобы не забивать сервис
	requestDelay = 100 * time.Millisecond
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run import_contributions.go <path-to-csv> [service-url]")
		fmt.Println("Example: go run import_contributions.go mandi-prices.csv http://localhost:8080")
		fmt.Println("CSV columns: vegetable,price,location[,submitted_by]")
		fmt.Println("Set VEGPRICE_TOKEN when the service requires a bearer token.")
		os.Exit(1)
	}

	csvPath := os.Args[1]
	serviceURL := defaultServiceURL
	if len(os.Args) > 2 {
		serviceURL = strings.TrimRight(os.Args[2], "/")
	}
	token := os.Getenv("VEGPRICE_TOKEN")

	fmt.Println("Step 1: Reading CSV file...")
	rows, skipped, err := readCSV(csvPath)
	if err != nil {
		fmt.Printf("Error reading CSV: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✓ Read %d rows from CSV (%d skipped)\n", len(rows), skipped)

	fmt.Printf("\nStep 2: Posting contributions to %s...\n", serviceURL)
	client := &http.Client{Timeout: 15 * time.Second}

	successCount, failCount := 0, 0
	for i, row := range rows {
		if err := postContribution(client, serviceURL, token, row); err != nil {
			fmt.Printf("✗ line %d (%s @ %s): %v\n", row.Line, row.Vegetable, row.Location, err)
			failCount++
		} else {
			successCount++
		}
		if i < len(rows)-1 {
			time.Sleep(requestDelay)
		}
	}

	fmt.Printf("\nDone: %d imported, %d failed, %d skipped\n", successCount, failCount, skipped)
	if failCount > 0 {
		os.Exit(1)
	}
}

func readCSV(path string) ([]ContributionRow, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	var rows []ContributionRow
	skipped := 0
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, skipped, fmt.Errorf("failed to read record: %w", err)
		}
		line++

		if len(record) < 3 || strings.TrimSpace(record[0]) == "" {
			skipped++
			continue
		}

		price, err := strconv.ParseFloat(strings.TrimSpace(record[1]), 64)
		if err != nil {
			// Заголовок или мусор в колонке цены
			if line > 1 {
				fmt.Printf("⊘ line %d: invalid price %q\n", line, record[1])
			}
			skipped++
			continue
		}

		row := ContributionRow{
			Line:        line,
			Vegetable:   strings.TrimSpace(record[0]),
			Price:       price,
			Location:    strings.TrimSpace(record[2]),
			SubmittedBy: defaultAuthor,
		}
		if len(record) > 3 && strings.TrimSpace(record[3]) != "" {
			row.SubmittedBy = strings.TrimSpace(record[3])
		}
		rows = append(rows, row)
	}

	return rows, skipped, nil
}

func postContribution(client *http.Client, serviceURL, token string, row ContributionRow) error {
	body, err := json.Marshal(contributionPayload{
		Vegetable:   row.Vegetable,
		Price:       row.Price,
		Location:    row.Location,
		SubmittedBy: row.SubmittedBy,
	})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, serviceURL+"/api/v1/contributions", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	return nil
}
