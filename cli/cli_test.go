package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loan-calculator/config"
	"loan-calculator/domain"
	"loan-calculator/observability"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		for _, name := range []string{"json", "no-schedule"} {
			_ = calculateCmd.Flags().Set(name, "false")
		}
	})
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCalculateCommand_Table(t *testing.T) {
	out, err := runCommand(t, "calculate", "--amount", "1000.00", "--rate", "5.0", "--payments", "3")
	require.NoError(t, err)

	assert.Contains(t, out, "Periodic payment")
	assert.Contains(t, out, "336.11")
	assert.Contains(t, out, "Scheduled payment")
	assert.Contains(t, out, "1008.34")

	lines := strings.Split(strings.TrimSpace(out), "\n")
	last := strings.Fields(lines[len(lines)-1])
	assert.Equal(t, []string{"3", "336.12", "334.73", "1.39", "0.00"}, last)
}

func TestCalculateCommand_JSON(t *testing.T) {
	out, err := runCommand(t, "calculate", "-a", "12000", "-r", "0", "-n", "24", "--json")
	require.NoError(t, err)

	var result domain.LoanResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "500.00", result.PeriodicPayment.String())
	assert.Len(t, result.PaymentSchedule, 24)
	assert.Empty(t, result.LoanID)
}

func TestCalculateCommand_Invalid(t *testing.T) {
	_, err := runCommand(t, "calculate", "-a", "0", "-r", "5", "-n", "12")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Loan amount must be greater than 0")

	_, err = runCommand(t, "calculate", "-a", "ten", "-r", "5", "-n", "12")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --amount")
}

func TestOpenStorage(t *testing.T) {
	ctx := context.Background()
	logger := observability.Discard()

	t.Run("memory", func(t *testing.T) {
		cfg := config.DefaultConfig()
		st, err := openStorage(ctx, cfg, logger)
		require.NoError(t, err)
		defer st.close()

		assert.NotNil(t, st.loans)
		assert.NotNil(t, st.cache)
		assert.NoError(t, st.health(ctx))
	})

	t.Run("sqlite without cache", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.Storage.Driver = "sqlite"
		cfg.Storage.SQLitePath = filepath.Join(t.TempDir(), "loans.db")
		cfg.Cache.Driver = "none"

		st, err := openStorage(ctx, cfg, logger)
		require.NoError(t, err)
		defer st.close()

		assert.Nil(t, st.cache)
		assert.NoError(t, st.health(ctx))
	})

	t.Run("unknown driver", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.Storage.Driver = "mongo"
		_, err := openStorage(ctx, cfg, logger)
		assert.Error(t, err)
	})
}
