package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/mmynk/warikan/internal/calculator"
	"github.com/mmynk/warikan/internal/ledger"
	"github.com/mmynk/warikan/internal/models"
	"github.com/mmynk/warikan/internal/session"
)

// render writes items in format. Table output uses header and cells; the
// other formats encode the items themselves.
func render[T any](w io.Writer, format string, items []T, header []string, cells func(T) []string) error {
	if items == nil {
		items = []T{}
	}

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(items); err != nil {
			return err
		}
		return enc.Close()
	case "csv":
		return gocsv.Marshal(items, w)
	case "table", "":
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, strings.Join(header, "\t"))
		for _, item := range items {
			fmt.Fprintln(tw, strings.Join(cells(item), "\t"))
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

type personRow struct {
	ID   string `json:"id" yaml:"id" csv:"id"`
	Name string `json:"name" yaml:"name" csv:"name"`
}

func personRows(people []models.Person) []personRow {
	rows := make([]personRow, len(people))
	for i, p := range people {
		rows[i] = personRow{ID: p.ID, Name: p.Name}
	}
	return rows
}

var personHeader = []string{"ID", "NAME"}

func (r personRow) cells() []string { return []string{r.ID, r.Name} }

type participantRow struct {
	ID    string `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	ToPay string `json:"toPay" yaml:"to_pay"`
	Paid  string `json:"paid" yaml:"paid"`
}

type purchaseRow struct {
	ID     string           `json:"id" yaml:"id" csv:"id"`
	Date   string           `json:"date" yaml:"date" csv:"date"`
	Name   string           `json:"name" yaml:"name" csv:"name"`
	Stage  string           `json:"stage" yaml:"stage" csv:"stage"`
	Total  string           `json:"total" yaml:"total" csv:"total"`
	Note   string           `json:"note" yaml:"note" csv:"note"`
	People []participantRow `json:"people" yaml:"people" csv:"-"`
}

func purchaseRows(purchases []models.Purchase) []purchaseRow {
	rows := make([]purchaseRow, len(purchases))
	for i, p := range purchases {
		people := make([]participantRow, len(p.Participants))
		for j, pp := range p.Participants {
			people[j] = participantRow{ID: pp.ID, Name: pp.Name, ToPay: money(pp.ToPay), Paid: money(pp.Paid)}
		}
		rows[i] = purchaseRow{
			ID:     p.ID,
			Date:   p.Date,
			Name:   p.Name,
			Stage:  p.Stage.String(),
			Total:  money(p.Total()),
			Note:   p.Note,
			People: people,
		}
	}
	return rows
}

var purchaseHeader = []string{"ID", "DATE", "NAME", "STAGE", "TOTAL", "PEOPLE", "NOTE"}

func (r purchaseRow) cells() []string {
	return []string{r.ID, r.Date, r.Name, r.Stage, r.Total, strconv.Itoa(len(r.People)), r.Note}
}

// exportRow is one participant of one purchase.
type exportRow struct {
	PurchaseID string `csv:"purchase_id"`
	Purchase   string `csv:"purchase"`
	Date       string `csv:"date"`
	Stage      string `csv:"stage"`
	Note       string `csv:"note"`
	PersonID   string `csv:"person_id"`
	Person     string `csv:"person"`
	ToPay      string `csv:"to_pay"`
	Paid       string `csv:"paid"`
	Owed       string `csv:"owed"`
}

func exportRows(purchases []models.Purchase) []exportRow {
	var rows []exportRow
	for _, p := range purchases {
		for _, pp := range p.Participants {
			rows = append(rows, exportRow{
				PurchaseID: p.ID,
				Purchase:   p.Name,
				Date:       p.Date,
				Stage:      p.Stage.String(),
				Note:       p.Note,
				PersonID:   pp.ID,
				Person:     pp.Name,
				ToPay:      money(pp.ToPay),
				Paid:       money(pp.Paid),
				Owed:       money(pp.Outstanding()),
			})
		}
	}
	return rows
}

type balanceRow struct {
	ID      string `json:"id" yaml:"id" csv:"id"`
	Name    string `json:"name" yaml:"name" csv:"name"`
	NetOwed string `json:"netOwed" yaml:"net_owed" csv:"net_owed"`
}

func balanceRows(balances []calculator.Balance) []balanceRow {
	rows := make([]balanceRow, len(balances))
	for i, b := range balances {
		rows[i] = balanceRow{ID: b.PersonID, Name: b.Name, NetOwed: money(b.NetOwed)}
	}
	return rows
}

var balanceHeader = []string{"ID", "NAME", "OWES"}

func (r balanceRow) cells() []string { return []string{r.ID, r.Name, r.NetOwed} }

type transferRow struct {
	From   string `json:"from" yaml:"from" csv:"from"`
	To     string `json:"to" yaml:"to" csv:"to"`
	Amount string `json:"amount" yaml:"amount" csv:"amount"`
}

func transferRows(transfers []calculator.Transfer) []transferRow {
	rows := make([]transferRow, len(transfers))
	for i, t := range transfers {
		rows[i] = transferRow{From: t.From, To: t.To, Amount: money(t.Amount)}
	}
	return rows
}

var transferHeader = []string{"FROM", "TO", "AMOUNT"}

func (r transferRow) cells() []string { return []string{r.From, r.To, r.Amount} }

var resultHeader = []string{"ID", "OUTCOME"}

func resultCells(r ledger.ItemResult) []string { return []string{r.ID, string(r.Outcome)} }

type statusRow struct {
	Authenticated bool   `json:"authenticated" yaml:"authenticated" csv:"authenticated"`
	Email         string `json:"email,omitempty" yaml:"email,omitempty" csv:"email"`
	ExpiresAt     string `json:"expiresAt,omitempty" yaml:"expires_at,omitempty" csv:"expires_at"`
}

func newStatusRow(s session.Status) statusRow {
	row := statusRow{Authenticated: s.Authenticated, Email: s.Email}
	if !s.ExpiresAt.IsZero() {
		row.ExpiresAt = s.ExpiresAt.UTC().Format(time.RFC3339)
	}
	return row
}

var statusHeader = []string{"AUTHENTICATED", "EMAIL", "EXPIRES"}

func (r statusRow) cells() []string {
	return []string{strconv.FormatBool(r.Authenticated), r.Email, r.ExpiresAt}
}

type syncRow struct {
	People    int `json:"people" yaml:"people" csv:"people"`
	Unsettled int `json:"unsettled" yaml:"unsettled" csv:"unsettled"`
	Settled   int `json:"settled" yaml:"settled" csv:"settled"`
	Archived  int `json:"archived" yaml:"archived" csv:"archived"`
}

func newSyncRow(people []models.Person, purchases []models.Purchase) syncRow {
	row := syncRow{People: len(people)}
	for _, p := range purchases {
		switch p.Stage {
		case models.StageUnsettled:
			row.Unsettled++
		case models.StageSettled:
			row.Settled++
		case models.StageArchived:
			row.Archived++
		}
	}
	return row
}

var syncHeader = []string{"PEOPLE", "UNSETTLED", "SETTLED", "ARCHIVED"}

func (r syncRow) cells() []string {
	return []string{strconv.Itoa(r.People), strconv.Itoa(r.Unsettled), strconv.Itoa(r.Settled), strconv.Itoa(r.Archived)}
}
