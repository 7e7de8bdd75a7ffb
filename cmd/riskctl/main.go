package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/noah-isme/dropout-watch-api/internal/ingest"
	"github.com/noah-isme/dropout-watch-api/internal/models"
	"github.com/noah-isme/dropout-watch-api/internal/risk"
)

const usage = `riskctl merges the attendance, marks and fees sheets offline.

Usage:
  riskctl merge --attendance a.csv --marks m.csv --fees f.csv [--top N] [--json out.json]
  riskctl template --kind attendance|marks|fees
`

type mergeReport struct {
	Stats      risk.Stats       `json:"stats"`
	Incomplete int              `json:"incomplete_records"`
	Duplicates int              `json:"duplicate_records"`
	Priority   []risk.Ranked    `json:"priority"`
	Students   []models.Student `json:"students"`
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(out, usage)
		return errors.New("a command is required")
	}

	switch args[0] {
	case "merge":
		return runMerge(args[1:], out)
	case "template":
		return runTemplate(args[1:], out)
	case "help", "-h", "--help":
		fmt.Fprint(out, usage)
		return nil
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func runMerge(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("merge", flag.ContinueOnError)
	fs.SetOutput(out)
	attendancePath := fs.String("attendance", "", "Path to the attendance CSV")
	marksPath := fs.String("marks", "", "Path to the marks CSV")
	feesPath := fs.String("fees", "", "Path to the fees CSV")
	topN := fs.Int("top", risk.DefaultPriorityLimit, "Number of priority students to list")
	jsonOut := fs.String("json", "", "Optional JSON output path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *attendancePath == "" || *marksPath == "" || *feesPath == "" {
		return errors.New("--attendance, --marks and --fees are required")
	}

	report, err := buildReport(*attendancePath, *marksPath, *feesPath, *topN)
	if err != nil {
		return err
	}

	printReport(out, report)

	if *jsonOut != "" {
		if err := writeJSON(report, *jsonOut); err != nil {
			return err
		}
		fmt.Fprintf(out, "\nJSON report saved to %s\n", *jsonOut)
	}
	return nil
}

func runTemplate(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("template", flag.ContinueOnError)
	fs.SetOutput(out)
	kind := fs.String("kind", "", "Sheet kind: attendance, marks or fees")
	if err := fs.Parse(args); err != nil {
		return err
	}

	sourceKind, err := ingest.ParseKind(*kind)
	if err != nil {
		return err
	}
	body, err := ingest.Template(sourceKind)
	if err != nil {
		return err
	}
	_, err = out.Write(body)
	return err
}

func buildReport(attendancePath, marksPath, feesPath string, top int) (mergeReport, error) {
	attendance, err := loadTable(attendancePath)
	if err != nil {
		return mergeReport{}, err
	}
	marks, err := loadTable(marksPath)
	if err != nil {
		return mergeReport{}, err
	}
	fees, err := loadTable(feesPath)
	if err != nil {
		return mergeReport{}, err
	}

	merged, err := ingest.Merge(&attendance, &marks, &fees)
	if err != nil {
		return mergeReport{}, err
	}
	students, duplicates := ingest.DropDuplicateIDs(merged)

	return mergeReport{
		Stats:      risk.Aggregate(students),
		Incomplete: ingest.CountIncomplete(students),
		Duplicates: duplicates,
		Priority:   risk.RankPriority(students, top),
		Students:   students,
	}, nil
}

func loadTable(path string) (ingest.Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return ingest.Table{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()
	return ingest.ParseCSV(path, file)
}

func printReport(out io.Writer, report mergeReport) {
	heading := color.New(color.FgCyan, color.Bold)
	heading.Fprintf(out, "\nMerged %d students\n", report.Stats.Total)
	if report.Incomplete > 0 {
		color.New(color.FgYellow).Fprintf(out, "%d records are missing identity fields\n", report.Incomplete)
	}
	if report.Duplicates > 0 {
		color.New(color.FgYellow).Fprintf(out, "%d records repeat an earlier Student_ID and were skipped\n", report.Duplicates)
	}

	tiers := tablewriter.NewWriter(out)
	tiers.SetHeader([]string{"Tier", "Students"})
	tiers.Append([]string{risk.TierLow.String(), strconv.Itoa(report.Stats.LowRisk)})
	tiers.Append([]string{risk.TierMedium.String(), strconv.Itoa(report.Stats.MediumRisk)})
	tiers.Append([]string{risk.TierHigh.String(), strconv.Itoa(report.Stats.HighRisk)})
	tiers.Render()

	departments := make([]string, 0, len(report.Stats.ByDepartment))
	for dept := range report.Stats.ByDepartment {
		departments = append(departments, dept)
	}
	sort.Strings(departments)

	heading.Fprintln(out, "\nBy department")
	byDept := tablewriter.NewWriter(out)
	byDept.SetHeader([]string{"Department", "Low", "Medium", "High"})
	for _, dept := range departments {
		counts := report.Stats.ByDepartment[dept]
		byDept.Append([]string{dept, strconv.Itoa(counts.Low), strconv.Itoa(counts.Medium), strconv.Itoa(counts.High)})
	}
	byDept.Render()

	heading.Fprintln(out, "\nPriority students")
	priority := tablewriter.NewWriter(out)
	priority.SetHeader([]string{"Student", "Name", "Dept", "Attendance", "Avg Score", "Fee Due", "Tier", "Urgency"})
	for _, r := range report.Priority {
		priority.Append([]string{
			r.StudentID,
			r.Name,
			r.Department,
			fmt.Sprintf("%.1f%%", r.AttendancePercentage),
			fmt.Sprintf("%.1f", r.AvgTestScore),
			strconv.Itoa(r.FeeDueDays),
			risk.Tier(r.DropoutRisk).String(),
			fmt.Sprintf("%.1f", r.UrgencyScore),
		})
	}
	priority.Render()
}

func writeJSON(report mergeReport, path string) error {
	payload, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o644)
}
