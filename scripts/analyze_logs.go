package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

type LogStats struct {
	TotalErrors      int
	LoginSuccess     int
	LoginFailures    int
	Registrations    int
	PaymentsStarted  int
	IdempotentReplay int
	Transitions      map[string]int
	ProviderUsage    map[string]int
	RejectedWebhooks map[string]int
	DuplicateHooks   int
	GatewayFailures  int
	ReceiptsIssued   int
	ErrorPatterns    map[string]int
}

func newLogStats() *LogStats {
	return &LogStats{
		Transitions:      make(map[string]int),
		ProviderUsage:    make(map[string]int),
		RejectedWebhooks: make(map[string]int),
		ErrorPatterns:    make(map[string]int),
	}
}

var (
	transitionPattern = regexp.MustCompile(`Transaction \S+ moved from (\w+) to (\w+)`)
	createdPattern    = regexp.MustCompile(`Transaction \S+ created on link \S+ via (\w+)`)
	rejectedPattern   = regexp.MustCompile(`Rejected webhook from (\S+):`)
	// "ERROR: 2024/01/02 15:04:05 file.go:12: message"
	messagePattern = regexp.MustCompile(`^\w+: \S+ \S+ \S+: (.*)$`)
	numberPattern  = regexp.MustCompile(`\b(TXN-[0-9A-F]+|RCP-\d{8}-\w+|\d+)\b`)
)

func main() {
	var logDir, date string

	cmd := &cobra.Command{
		Use:   "analyze-logs",
		Short: "Summarize authentication and payment activity from the API logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			stats := newLogStats()

			errorLog := filepath.Join(logDir, fmt.Sprintf("error-%s.log", date))
			if err := analyzeFile(errorLog, stats, analyzeErrorLogs); err != nil {
				return err
			}
			infoLog := filepath.Join(logDir, fmt.Sprintf("info-%s.log", date))
			if err := analyzeFile(infoLog, stats, analyzeInfoLogs); err != nil {
				return err
			}

			printReport(cmd.OutOrStdout(), stats)
			return nil
		},
	}
	cmd.Flags().StringVar(&logDir, "dir", "./logs", "directory holding the log files")
	cmd.Flags().StringVar(&date, "date", time.Now().Format("2006-01-02"), "day to analyze (YYYY-MM-DD)")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func analyzeFile(path string, stats *LogStats, analyze func(io.Reader, *LogStats) error) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("error opening log file %s: %w", path, err)
	}
	defer file.Close()
	return analyze(file, stats)
}

func analyzeErrorLogs(r io.Reader, stats *LogStats) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		stats.TotalErrors++

		switch {
		case strings.Contains(line, "Invalid password for user") || strings.Contains(line, "Login attempt for unknown email"):
			stats.LoginFailures++
		case strings.Contains(line, "Gateway rejected") || strings.Contains(line, "Status check failed"):
			stats.GatewayFailures++
		}
		if m := rejectedPattern.FindStringSubmatch(line); m != nil {
			stats.RejectedWebhooks[m[1]]++
		}

		if pattern := errorPattern(line); pattern != "" {
			stats.ErrorPatterns[pattern]++
		}
	}
	return scanner.Err()
}

func analyzeInfoLogs(r io.Reader, stats *LogStats) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case strings.Contains(line, "User logged in with ID"):
			stats.LoginSuccess++
		case strings.Contains(line, "User registered with ID"):
			stats.Registrations++
		case strings.Contains(line, "Idempotent replay of"):
			stats.IdempotentReplay++
		case strings.Contains(line, "Duplicate webhook"):
			stats.DuplicateHooks++
		case strings.Contains(line, "Receipt RCP-"):
			stats.ReceiptsIssued++
		}

		if m := createdPattern.FindStringSubmatch(line); m != nil {
			stats.PaymentsStarted++
			stats.ProviderUsage[m[1]]++
		}
		if m := transitionPattern.FindStringSubmatch(line); m != nil {
			stats.Transitions[m[1]+" -> "+m[2]]++
		}
	}
	return scanner.Err()
}

// errorPattern strips the log prefix and identifiers so similar errors group together
func errorPattern(line string) string {
	m := messagePattern.FindStringSubmatch(line)
	if m == nil {
		return ""
	}
	msg := m[1]
	if i := strings.Index(msg, ": "); i > 0 {
		msg = msg[:i]
	}
	return numberPattern.ReplaceAllString(strings.TrimSpace(msg), "#")
}

func printReport(w io.Writer, stats *LogStats) {
	fmt.Fprintln(w, "\n=== Log Analysis Report ===")
	fmt.Fprintln(w, "Generated:", time.Now().Format("2006-01-02 15:04:05"))

	fmt.Fprintln(w, "\n1. Authentication Statistics:")
	fmt.Fprintf(w, "   Registrations: %d\n", stats.Registrations)
	fmt.Fprintf(w, "   Successful Logins: %d\n", stats.LoginSuccess)
	fmt.Fprintf(w, "   Failed Logins: %d\n", stats.LoginFailures)

	fmt.Fprintln(w, "\n2. Payments:")
	fmt.Fprintf(w, "   Payments Initiated: %d\n", stats.PaymentsStarted)
	fmt.Fprintf(w, "   Idempotent Replays: %d\n", stats.IdempotentReplay)
	fmt.Fprintf(w, "   Gateway Failures: %d\n", stats.GatewayFailures)
	fmt.Fprintf(w, "   Receipts Issued: %d\n", stats.ReceiptsIssued)
	printTop(w, "   By provider", stats.ProviderUsage, 10, "payments")
	printTop(w, "   Status transitions", stats.Transitions, 10, "times")

	fmt.Fprintln(w, "\n3. Webhooks:")
	fmt.Fprintf(w, "   Duplicates Acknowledged: %d\n", stats.DuplicateHooks)
	printTop(w, "   Rejected signatures", stats.RejectedWebhooks, 10, "rejections")

	fmt.Fprintln(w, "\n4. Error Statistics:")
	fmt.Fprintf(w, "   Total Errors: %d\n", stats.TotalErrors)
	printTop(w, "   Most common", stats.ErrorPatterns, 5, "occurrences")
}

func printTop(w io.Writer, title string, counts map[string]int, limit int, unit string) {
	type entry struct {
		name  string
		count int
	}

	var entries []entry
	for name, count := range counts {
		entries = append(entries, entry{name, count})
	}
	if len(entries) == 0 {
		return
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count == entries[j].count {
			return entries[i].name < entries[j].name
		}
		return entries[i].count > entries[j].count
	})

	fmt.Fprintf(w, "%s:\n", title)
	for i, e := range entries {
		if i >= limit {
			break
		}
		fmt.Fprintf(w, "     %s: %d %s\n", e.name, e.count, unit)
	}
}
