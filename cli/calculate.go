package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"loan-calculator/config"
	"loan-calculator/domain"
	"loan-calculator/observability"
	"loan-calculator/repository"
	"loan-calculator/service"
)

func init() {
	rootCmd.AddCommand(calculateCmd)
	calculateCmd.Flags().StringP("amount", "a", "", "Loan amount, e.g. 27000.00")
	calculateCmd.Flags().StringP("rate", "r", "", "Annual interest rate in percent, e.g. 4.875")
	calculateCmd.Flags().IntP("payments", "n", 0, "Number of monthly payments")
	calculateCmd.Flags().Bool("json", false, "Print the result as JSON")
	calculateCmd.Flags().Bool("no-schedule", false, "Print only the summary")
	_ = calculateCmd.MarkFlagRequired("amount")
	_ = calculateCmd.MarkFlagRequired("rate")
	_ = calculateCmd.MarkFlagRequired("payments")
}

var calculateCmd = &cobra.Command{
	Use:   "calculate",
	Short: "Compute a loan and print its amortization schedule",
	Example: `  loancalc calculate --amount 27000 --rate 4.875 --payments 36
  loancalc calculate -a 1000 -r 5 -n 3 --json`,
	Args: cobra.NoArgs,
	RunE: runCalculate,
}

func runCalculate(cmd *cobra.Command, _ []string) error {
	amountFlag, _ := cmd.Flags().GetString("amount")
	rateFlag, _ := cmd.Flags().GetString("rate")
	payments, _ := cmd.Flags().GetInt("payments")
	asJSON, _ := cmd.Flags().GetBool("json")
	noSchedule, _ := cmd.Flags().GetBool("no-schedule")

	amount, err := decimal.NewFromString(amountFlag)
	if err != nil {
		return fmt.Errorf("invalid --amount %q: %w", amountFlag, err)
	}
	rate, err := decimal.NewFromString(rateFlag)
	if err != nil {
		return fmt.Errorf("invalid --rate %q: %w", rateFlag, err)
	}

	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	// Nothing is stored; the repository only satisfies the constructor.
	svc := service.NewLoanService(repository.NewLoanRepositoryMemory(), nil,
		observability.Discard(), limitsFromConfig(cfg))

	result, err := svc.Quote(cmd.Context(), domain.LoanInput{
		LoanAmount:       &amount,
		InterestRate:     &rate,
		NumberOfPayments: &payments,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	return printLoan(out, result, !noSchedule)
}

func printLoan(out io.Writer, result domain.LoanResult, withSchedule bool) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)

	fmt.Fprintf(tw, "Loan amount\t%s\t\n", result.LoanAmount)
	fmt.Fprintf(tw, "Annual rate\t%s%%\t\n", result.InterestRate.String())
	fmt.Fprintf(tw, "Payments\t%d\t\n", result.NumberOfPayments)
	fmt.Fprintf(tw, "Periodic payment\t%s\t\n", result.PeriodicPayment)
	fmt.Fprintf(tw, "Total payment\t%s\t\n", result.TotalPayment)
	fmt.Fprintf(tw, "Total interest\t%s\t\n", result.TotalInterest)
	if !result.ScheduledPayment.Equal(result.TotalPayment.Decimal) {
		fmt.Fprintf(tw, "Scheduled payment\t%s\t\n", result.ScheduledPayment)
		fmt.Fprintf(tw, "Scheduled interest\t%s\t\n", result.ScheduledInterest)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if !withSchedule {
		return nil
	}

	fmt.Fprintln(out)
	tw = tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Period\tPayment\tPrincipal\tInterest\tBalance\t")
	for _, e := range result.PaymentSchedule {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t\n",
			e.Period, e.Payment, e.PrincipalAmount, e.InterestAmount, e.BalanceOwed)
	}
	return tw.Flush()
}
