package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/manufab-platform/kpi-core/pkg/apperrors"
	"github.com/manufab-platform/kpi-core/pkg/config"
)

func TestReportErrorExitCodes(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"unauthenticated", apperrors.Unauthenticated("no token"), exitUnauthenticated},
		{"forbidden", apperrors.New(apperrors.KindForbidden, "wrong tenant"), exitUnauthenticated},
		{"validation", apperrors.New(apperrors.KindValidation, "bad field"), exitValidation},
		{"invalid transition", apperrors.New(apperrors.KindInvalidTransition, "bad move"), exitValidation},
		{"not found", apperrors.New(apperrors.KindNotFound, "missing"), exitValidation},
		{"conflict", apperrors.New(apperrors.KindConflict, "duplicate"), exitConflict},
		{"stale", apperrors.New(apperrors.KindStale, "version mismatch"), exitConflict},
		{"dependent rows", apperrors.New(apperrors.KindDependentRows, "has children"), exitConflict},
		{"infra", apperrors.New(apperrors.KindInfra, "db down"), exitInfra},
		{"internal", apperrors.New(apperrors.KindInternal, "panic recovered"), exitInternal},
		{"bare error", errors.New("boom"), exitInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, reportError(tc.err))
		})
	}
}

func TestParseWindow(t *testing.T) {
	w, err := parseWindow("2026-01-01", "2026-01-31")
	require.NoError(t, err)
	require.Equal(t, 2026, w.From.Year())
	require.Equal(t, 31, w.To.Day())

	_, err = parseWindow("not-a-date", "2026-01-31")
	require.Error(t, err)
	var usageErr *flagUsageError
	require.True(t, errors.As(err, &usageErr))
}

func TestCmdLoginRequiresCredentials(t *testing.T) {
	f, _, closeFn, err := wire(config.New())
	require.NoError(t, err)
	defer closeFn()

	_, err = cmdLogin(nil, f, []string{"--username", "alice"})
	require.Error(t, err)
	var usageErr *flagUsageError
	require.True(t, errors.As(err, &usageErr))
}

func TestCmdHoldRequiresWorkOrderAndReason(t *testing.T) {
	f, _, closeFn, err := wire(config.New())
	require.NoError(t, err)
	defer closeFn()

	_, err = cmdHold(nil, f, []string{"--token", "x"})
	require.Error(t, err)
	var usageErr *flagUsageError
	require.True(t, errors.As(err, &usageErr))
}

func TestVersionCommand(t *testing.T) {
	require.Equal(t, exitOK, run([]string{"version"}))
}

func TestCmdCapacityUnknownSubcommand(t *testing.T) {
	f, _, closeFn, err := wire(config.New())
	require.NoError(t, err)
	defer closeFn()

	_, err = cmdCapacity(nil, f, []string{"bogus", "--client", "CL-1"})
	require.Error(t, err)
	var usageErr *flagUsageError
	require.True(t, errors.As(err, &usageErr))
}

func TestWireBuildsReportingSchedulerFromConfiguredJobs(t *testing.T) {
	cfg := config.New()
	cfg.Reporting.Jobs = []config.ReportJobConfig{
		{ClientID: "CL1", Schedule: "0 6 * * *", Kind: "daily", WindowHours: 24, ActorUserID: "scheduler"},
	}
	_, scheduler, closeFn, err := wire(cfg)
	require.NoError(t, err)
	defer closeFn()
	require.NotNil(t, scheduler)
}
