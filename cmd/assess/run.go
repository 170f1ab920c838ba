package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/fairyhunter13/ai-interview-assessor/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-assessor/internal/app"
	"github.com/fairyhunter13/ai-interview-assessor/internal/assessfile"
	"github.com/fairyhunter13/ai-interview-assessor/internal/config"
	"github.com/fairyhunter13/ai-interview-assessor/internal/domain"
	obsctx "github.com/fairyhunter13/ai-interview-assessor/internal/observability"
)

type runOptions struct {
	transcript  string
	resume      string
	job         string
	template    string
	candidateID string
	name        string
	jobID       int64
	provider    string
	out         string
	resultJSON  string
}

func newRunCmd() *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one assessment end-to-end and print the report",
		Long: `Runs preprocessing, the four assessment stages, scoring, report composition
and the quality audit against the configured AI provider. The markdown report
goes to --out or stdout; logs go to stderr.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAssessment(cmd, opts)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.transcript, "transcript", "t", "", "Path to the interview transcript (text)")
	f.StringVarP(&opts.resume, "resume", "r", "", "Path to the candidate resume (text, optional)")
	f.StringVarP(&opts.job, "job", "j", assessfile.DefaultJobPath, "Path to the job description (YAML or JSON)")
	f.StringVar(&opts.template, "template", assessfile.DefaultTemplatePath, "Path to the report template (markdown or YAML)")
	f.StringVar(&opts.candidateID, "candidate-id", "", "Candidate identifier (defaults to a random UUID)")
	f.StringVarP(&opts.name, "name", "n", "", "Candidate name")
	f.Int64Var(&opts.jobID, "job-id", 0, "Optional job identifier recorded on the result")
	f.StringVar(&opts.provider, "provider", "", "AI provider override: openrouter, gemini or stub (defaults to AI_PROVIDER)")
	f.StringVarP(&opts.out, "out", "o", "", "Write the markdown report to this file instead of stdout")
	f.StringVar(&opts.resultJSON, "result-json", "", "Also write the full assessment result as JSON to this file")
	_ = cmd.MarkFlagRequired("transcript")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

// buildRequest loads every input file named by opts.
func buildRequest(opts runOptions) (domain.AssessmentRequest, error) {
	req := domain.AssessmentRequest{
		CandidateID:   strings.TrimSpace(opts.candidateID),
		CandidateName: strings.TrimSpace(opts.name),
	}
	if req.CandidateName == "" {
		return domain.AssessmentRequest{}, fmt.Errorf("%w: --name is required", domain.ErrInvalidArgument)
	}
	if req.CandidateID == "" {
		req.CandidateID = uuid.NewString()
	}
	if opts.jobID > 0 {
		id := opts.jobID
		req.JobID = &id
	}

	var err error
	if req.Transcript, err = assessfile.ReadText(opts.transcript); err != nil {
		return domain.AssessmentRequest{}, fmt.Errorf("transcript: %w", err)
	}
	if opts.resume != "" {
		if req.ResumeText, err = assessfile.ReadText(opts.resume); err != nil {
			return domain.AssessmentRequest{}, fmt.Errorf("resume: %w", err)
		}
	}
	if req.JobDescription, err = assessfile.LoadJobDescription(opts.job); err != nil {
		return domain.AssessmentRequest{}, fmt.Errorf("job description: %w", err)
	}
	if req.ReportTemplate, err = assessfile.LoadReportTemplate(opts.template); err != nil {
		return domain.AssessmentRequest{}, fmt.Errorf("report template: %w", err)
	}
	return req, nil
}

func runAssessment(cmd *cobra.Command, opts runOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if opts.provider != "" {
		cfg.AIProvider = opts.provider
	}
	logger := observability.NewLogger(cmd.ErrOrStderr(), cfg)

	req, err := buildRequest(opts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = obsctx.ContextWithLogger(ctx, logger)

	rdb, err := app.NewRedisClient(cfg)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}
	gen, closeGen, err := app.BuildGenerator(ctx, cfg, rdb)
	if err != nil {
		return err
	}
	defer func() { _ = closeGen() }()
	controller, err := app.BuildController(cfg, gen)
	if err != nil {
		return err
	}

	logger.Info("assessment starting",
		slog.String("candidate_id", req.CandidateID),
		slog.String("provider", gen.Provider()),
		slog.String("job_title", req.JobDescription.Title))
	res, err := controller.RunAssessment(ctx, req)
	if err != nil {
		return fmt.Errorf("assessment failed: %w", err)
	}

	if opts.resultJSON != "" {
		if err := writeResultJSON(opts.resultJSON, res); err != nil {
			return err
		}
	}
	return writeReport(cmd.OutOrStdout(), opts.out, res.GeneratedReport)
}

func writeReport(stdout io.Writer, path, report string) error {
	if path == "" || path == "-" {
		_, err := io.WriteString(stdout, report)
		return err
	}
	if err := os.WriteFile(path, []byte(report), 0o600); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func writeResultJSON(path string, res domain.AssessmentResult) error {
	b, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	return nil
}
