package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"lin/internal/api"
	"lin/internal/core"
)

// dateRange parses optional -from/-to flags.
func dateRange(from, to string) (time.Time, time.Time, error) {
	var start, end time.Time
	now := time.Now()
	if from != "" {
		ts, err := parseWhen(from, now)
		if err != nil {
			return start, end, usageErr("-from: %v", err)
		}
		start = ts.Time
	}
	if to != "" {
		ts, err := parseWhen(to, now)
		if err != nil {
			return start, end, usageErr("-to: %v", err)
		}
		end = ts.Time
	}
	return start, end, nil
}

func runExpenses(ctx context.Context, a *app, args []string) error {
	return dispatch("expenses", args, []action{
		{"list", "list expenses", func(args []string) error {
			fs := newFlags("expenses list")
			var f api.ExpenseFilter
			category := fs.String("category", "", "expense category")
			from := fs.String("from", "", "start date")
			to := fs.String("to", "", "end date")
			fs.StringVar(&f.Merchant, "merchant", "", "merchant")
			fs.StringVar(&f.Search, "q", "", "search text")
			fs.IntVar(&f.Page, "page", 1, "page number")
			fs.IntVar(&f.Limit, "limit", core.DefaultLimit, "items per page")
			if err := fs.Parse(args); err != nil {
				return err
			}
			var err error
			if f.StartDate, f.EndDate, err = dateRange(*from, *to); err != nil {
				return err
			}
			f.Category = core.ExpenseCategory(*category)

			page, err := a.client.ListExpenses(ctx, f)
			if err != nil {
				return err
			}
			printExpenses(a.out, page.Items)
			printPageFooter(a.out, page.Meta, len(page.Items))
			return nil
		}},
		{"add", "record an expense: add AMOUNT [DESCRIPTION]", func(args []string) error {
			fs := newFlags("expenses add")
			var in core.ExpenseInput
			category := fs.String("category", string(core.CategoryOther), "expense category")
			payment := fs.String("payment", "", "payment method")
			date := fs.String("date", "today", "date of the expense")
			tags := fs.String("tags", "", "comma-separated tags")
			fs.StringVar(&in.Merchant, "merchant", "", "merchant")
			fs.StringVar(&in.Currency, "currency", "", "currency (backend default when empty)")
			if err := fs.Parse(args); err != nil {
				return err
			}
			if fs.NArg() == 0 {
				return usageErr("expenses add AMOUNT [DESCRIPTION]")
			}
			amount, err := core.ParseAmount(fs.Arg(0))
			if err != nil {
				return usageErr("amount %q: %v", fs.Arg(0), err)
			}
			when, err := parseWhen(*date, time.Now())
			if err != nil {
				return usageErr("-date: %v", err)
			}
			in.Amount = amount
			in.Description = strings.Join(fs.Args()[1:], " ")
			in.Category = core.ExpenseCategory(*category)
			in.PaymentMethod = core.PaymentMethod(*payment)
			in.Date = when
			in.Tags = splitTags(*tags)

			e, err := a.client.CreateExpense(ctx, in.WithDefaults())
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Recorded %s for %s (%s)\n", core.FormatAmount(e.Amount, e.Currency), e.Label(), e.ID)
			return nil
		}},
		{"rm", "delete an expense", func(args []string) error {
			id, err := parseID(args, "expense")
			if err != nil {
				return err
			}
			if err := a.client.DeleteExpense(ctx, id); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Deleted", id)
			return nil
		}},
		{"summary", "totals per category", func(args []string) error {
			fs := newFlags("expenses summary")
			from := fs.String("from", "", "start date")
			to := fs.String("to", "", "end date")
			if err := fs.Parse(args); err != nil {
				return err
			}
			start, end, err := dateRange(*from, *to)
			if err != nil {
				return err
			}
			s, err := a.client.ExpenseSummary(ctx, start, end)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s to %s: %s over %d expense(s), average %s\n\n",
				s.PeriodStart.DateString(), s.PeriodEnd.DateString(),
				core.FormatAmount(s.TotalAmount, ""), s.TotalCount, core.FormatAmount(s.AverageAmount, ""))
			printCategories(a.out, s.Categories)
			return nil
		}},
		{"month", "totals for one month", func(args []string) error {
			fs := newFlags("expenses month")
			now := time.Now()
			year := fs.Int("year", now.Year(), "year")
			month := fs.Int("month", int(now.Month()), "month (1-12)")
			if err := fs.Parse(args); err != nil {
				return err
			}
			m, err := a.client.MonthlyExpenses(ctx, *year, time.Month(*month))
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%d-%02d: %s over %d expense(s)\n\n", m.Year, m.Month, core.FormatAmount(m.TotalAmount, ""), m.Count)
			printCategories(a.out, m.Categories)
			return nil
		}},
		{"export", "download expenses as csv or json", func(args []string) error {
			fs := newFlags("expenses export")
			format := fs.String("format", string(api.ExportCSV), "csv or json")
			from := fs.String("from", "", "start date")
			to := fs.String("to", "", "end date")
			output := fs.String("o", "", "write to file instead of stdout")
			if err := fs.Parse(args); err != nil {
				return err
			}
			start, end, err := dateRange(*from, *to)
			if err != nil {
				return err
			}
			body, err := a.client.ExportExpenses(ctx, api.ExportFormat(*format), start, end)
			if err != nil {
				return err
			}
			if *output == "" {
				_, err = a.out.Write(body)
				return err
			}
			if err := os.WriteFile(*output, body, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Wrote %d bytes to %s\n", len(body), *output)
			return nil
		}},
		{"parse", "turn free text or a receipt into an expense", func(args []string) error {
			fs := newFlags("expenses parse")
			receipt := fs.String("receipt", "", "receipt image to read instead of text")
			save := fs.Bool("save", false, "record the expense when the parse is accepted")
			if err := fs.Parse(args); err != nil {
				return err
			}
			var res api.ParseResult[core.ParsedExpense]
			var err error
			if *receipt != "" {
				up, closeFile, openErr := openUpload(*receipt)
				if openErr != nil {
					return openErr
				}
				defer closeFile()
				res, err = a.client.ParseExpenseReceipt(ctx, up)
			} else {
				res, err = a.client.ParseExpenseText(ctx, strings.Join(fs.Args(), " "))
			}
			if err != nil {
				return err
			}
			if !res.Accepted {
				printRejectedParse(a.out, res.Message, res.Confidence)
				return nil
			}
			p := res.Data
			tw := newTable(a.out)
			fmt.Fprintf(tw, "Amount\t%s\n", core.FormatAmount(p.Amount, p.Currency))
			fmt.Fprintf(tw, "Category\t%s\n", orDash(string(p.Category)))
			fmt.Fprintf(tw, "Merchant\t%s\n", orDash(p.Merchant))
			fmt.Fprintf(tw, "Description\t%s\n", orDash(p.Description))
			fmt.Fprintf(tw, "Date\t%s\n", formatDate(p.Date))
			fmt.Fprintf(tw, "Confidence\t%.2f\n", res.Confidence)
			tw.Flush()
			if !*save {
				return nil
			}
			in := p.Input()
			if in.Date.IsZero() {
				in.Date = core.NewTimestamp(time.Now())
			}
			e, err := a.client.CreateExpense(ctx, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Recorded expense %s\n", e.ID)
			return nil
		}},
		{"receipt", "attach a receipt: receipt ID FILE", func(args []string) error {
			if len(args) != 2 {
				return usageErr("expenses receipt ID FILE")
			}
			id, err := parseID(args, "expense")
			if err != nil {
				return err
			}
			up, closeFile, err := openUpload(args[1])
			if err != nil {
				return err
			}
			defer closeFile()
			e, err := a.client.UploadReceipt(ctx, id, up)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Receipt stored: %s\n", orDash(e.ReceiptURL))
			return nil
		}},
	})
}

func printExpenses(w io.Writer, expenses []core.Expense) {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tDATE\tAMOUNT\tCATEGORY\tDESCRIPTION")
	for _, e := range expenses {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			e.ID, e.Date.DateString(), core.FormatAmount(e.Amount, e.Currency), e.Category, truncate(e.Label(), 48))
	}
	tw.Flush()
}

func printCategories(w io.Writer, categories []core.CategorySummary) {
	tw := newTable(w)
	fmt.Fprintln(tw, "CATEGORY\tTOTAL\tCOUNT\tSHARE")
	for _, c := range categories {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%.1f%%\n", c.Category, c.TotalAmount, c.Count, c.Percentage)
	}
	tw.Flush()
}
