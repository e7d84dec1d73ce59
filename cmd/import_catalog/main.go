package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"loan-tracker/library"

	"github.com/joho/godotenv"
)

// import_catalog seeds the catalogue from a CSV of title,category,stock
// rows. Rows whose title is already registered are skipped so the tool can
// be re-run against a grown file.
func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <catalog.csv>\n", os.Args[0])
		os.Exit(2)
	}
	csvPath := os.Args[1]

	_ = godotenv.Load()
	cfg, err := library.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	log := library.NewLogger(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	store, err := library.OpenStore(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening store: %v\n", err)
		os.Exit(1)
	}
	manager, err := library.NewLoanManager(store, cfg, log)
	if err != nil {
		store.Close()
		fmt.Fprintf(os.Stderr, "Error loading state: %v\n", err)
		os.Exit(1)
	}
	defer manager.Close()

	f, err := os.Open(csvPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening catalog file: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	fmt.Printf("Importing catalogue from %s...\n", csvPath)

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = 3
	reader.TrimLeadingSpace = true

	successCount := 0
	skipCount := 0
	errorCount := 0

	for line := 1; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			fmt.Printf("line %d: ERROR - %v\n", line, err)
			errorCount++
			continue
		}

		title, category := record[0], record[1]
		if line == 1 && strings.EqualFold(title, "title") {
			// Header row.
			continue
		}

		stock, err := strconv.Atoi(strings.TrimSpace(record[2]))
		if err != nil {
			fmt.Printf("line %d: ERROR - invalid stock %q\n", line, record[2])
			errorCount++
			continue
		}

		fmt.Printf("Importing: %s (%s, %d copies)... ", title, category, stock)
		_, err = manager.RegisterMaterial(title, category, stock)
		switch {
		case err == nil:
			fmt.Println("SUCCESS")
			successCount++
		case library.IsCode(err, library.CodeDuplicateKey):
			fmt.Println("SKIPPED (already registered)")
			skipCount++
		default:
			fmt.Printf("ERROR - %v\n", err)
			errorCount++
		}
	}

	fmt.Printf("\nImport complete!\n")
	fmt.Printf("Imported: %d  Skipped: %d  Errors: %d\n", successCount, skipCount, errorCount)

	if successCount > 0 {
		fmt.Println("\nCatalogue:")
		fmt.Printf("%-30s %-15s %6s\n", "Title", "Category", "Stock")
		fmt.Println(strings.Repeat("-", 53))
		for _, m := range manager.Materials() {
			fmt.Printf("%-30s %-15s %6d\n", truncateString(m.Title, 30), truncateString(m.Category, 15), m.Stock)
		}
	}
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
