package ui

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// FetchPlan holds the details for the data fetching operation to be confirmed by the user.
type FetchPlan struct {
	Dataset            string
	FromDate           string
	ToDate             string
	Chunks             int
	Coordinates        int
	RateLimitPerSecond float64
	Target             string
	Mode               string
}

// TotalAPICalls is one request per coordinate and chunk.
func (p FetchPlan) TotalAPICalls() int {
	return p.Chunks * p.Coordinates
}

// EstimatedDuration returns the minutes and remaining seconds the rate limit allows for.
func (p FetchPlan) EstimatedDuration() (minutes, seconds int) {
	if p.RateLimitPerSecond <= 0 {
		return 0, 0
	}
	total := int(float64(p.TotalAPICalls()) / p.RateLimitPerSecond)
	return total / 60, total % 60
}

// ConfirmExecution displays the fetching plan on stdout and asks for confirmation on stdin.
func ConfirmExecution(plan FetchPlan) bool {
	return Confirm(os.Stdin, os.Stdout, plan)
}

// Confirm writes the plan to out and reads a y/N answer from in.
func Confirm(in io.Reader, out io.Writer, plan FetchPlan) bool {
	PrintPlan(out, plan)
	fmt.Fprint(out, "Do you want to proceed? (y/N): ")

	reader := bufio.NewReader(in)
	response, err := reader.ReadString('\n')
	if err != nil && response == "" {
		fmt.Fprintf(out, "Failed to read user input: %v\n", err)
		return false
	}
	response = strings.TrimSpace(strings.ToLower(response))

	return response == "y" || response == "yes"
}

// PrintPlan renders the plan.
func PrintPlan(out io.Writer, plan FetchPlan) {
	fmt.Fprintln(out, "\n"+strings.Repeat("=", 60))
	fmt.Fprintln(out, "🌦️  DATA FETCHING PLAN")
	fmt.Fprintln(out, strings.Repeat("=", 60))
	fmt.Fprintf(out, "🎯 Dataset: %s\n", plan.Dataset)
	fmt.Fprintf(out, "📅 Period: %s to %s\n", plan.FromDate, plan.ToDate)
	fmt.Fprintf(out, "🗺️  Grid coordinates: %d\n", plan.Coordinates)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "🧩 CHUNKING STRATEGY:")
	fmt.Fprintf(out, "  • API Rate Limit: %g requests/second\n", plan.RateLimitPerSecond)
	fmt.Fprintf(out, "  • Periods: %d (one calendar year at most)\n", plan.Chunks)
	fmt.Fprintf(out, "  • Result: %d requests (one per coordinate and period)\n", plan.TotalAPICalls())
	fmt.Fprintln(out)
	fmt.Fprintf(out, "💾 Target: %s (mode: %s)\n", plan.Target, plan.Mode)

	minutes, seconds := plan.EstimatedDuration()
	if minutes > 0 {
		fmt.Fprintf(out, "⏳ Estimated time: ~%d minutes %d seconds\n", minutes, seconds)
	} else {
		fmt.Fprintf(out, "⏳ Estimated time: ~%d seconds\n", seconds)
	}
	fmt.Fprintln(out, strings.Repeat("=", 60))
}
