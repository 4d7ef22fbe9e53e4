// Package pdf renders the printable stock card of a product.
//
// A4 page layout:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: product name + SKU  │  generated at / QR (SKU)      │
//	│  SUMMARY: type | unit | on hand | avg cost | stock value      │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLE: Date | Type | Ref | In | Out | Balance | Cost | Value │
//	│  ─────────────────────────────────────────────────────────  │
//	│  FOOTER: row count + reversal legend                          │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"strings"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"

	"github.com/SafetyDady/smart-erp-backend/internal/application/inventory"
	"github.com/SafetyDady/smart-erp-backend/internal/domain/entity"
)

var _ inventory.StockCardRenderer = (*StockCardGenerator)(nil)

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorRed     = &props.Color{Red: 170, Green: 30, Blue: 30}
)

// StockCardGenerator renders stock cards with Maroto v2.
type StockCardGenerator struct {
	company string
}

// NewStockCardGenerator builds the generator. company is printed as the document author.
func NewStockCardGenerator(company string) *StockCardGenerator {
	return &StockCardGenerator{company: company}
}

// RenderStockCard returns the PDF bytes of the card.
func (g *StockCardGenerator) RenderStockCard(_ context.Context, card inventory.StockCard) ([]byte, error) {
	if card.Product == nil || card.Balance == nil {
		return nil, fmt.Errorf("pdf: stock card needs a product and its balance")
	}
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 8}).
		WithTitle("Stock card "+card.Product.SKU, true).
		WithAuthor(g.company, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(card))
	m.AddRows(summaryRow(card))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(tableHeaderRow())
	m.AddRows(tableRows(card.Movements)...)
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(footerRow(card))

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generate document: %w", err)
	}
	return doc.GetBytes(), nil
}

func headerRow(card inventory.StockCard) core.Row {
	p := card.Product
	return row.New(24).Add(
		col.New(8).Add(
			text.New("STOCK CARD", props.Text{Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1}),
			text.New(p.Name, props.Text{Style: fontstyle.Bold, Size: 13, Top: 6}),
			text.New("SKU: "+p.SKU, props.Text{Size: 9, Top: 14, Color: colorGray}),
		),
		col.New(2).Add(
			text.New("Generated", props.Text{Size: 7, Align: align.Right, Top: 6, Color: colorGray}),
			text.New(card.GeneratedAt.Format("2006-01-02 15:04 MST"), props.Text{Size: 7, Align: align.Right, Top: 10}),
		),
		col.New(2).Add(code.NewQr("SKU:"+p.SKU, props.Rect{Percent: 90, Center: true})),
	)
}

func summaryRow(card inventory.StockCard) core.Row {
	p, b := card.Product, card.Balance
	cell := func(label, value string, size int) core.Col {
		return col.New(size).Add(
			text.New(label, props.Text{Size: 7, Color: colorGray, Top: 1}),
			text.New(value, props.Text{Style: fontstyle.Bold, Size: 9, Top: 5}),
		)
	}
	return row.New(12).Add(
		cell("Type", string(p.Type), 2),
		cell("Base unit", p.BaseUnit, 2),
		cell("On hand", formatNumber(b.OnHand, 2), 2),
		cell("Avg cost / "+p.BaseUnit, formatNumber(p.CostPerBaseUnit, 4), 3),
		cell("Stock value", formatNumber(b.OnHand.Mul(p.CostPerBaseUnit), 2), 3),
	)
}

func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 7, Align: a, Color: colorPrimary, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Date", 2, align.Left),
		h("Type", 1, align.Left),
		h("Reference", 3, align.Left),
		h("In", 1, align.Right),
		h("Out", 1, align.Right),
		h("Balance", 1, align.Right),
		h("Unit cost", 1, align.Right),
		h("Value", 2, align.Right),
	)
}

func tableRows(movements []*entity.StockMovement) []core.Row {
	rows := make([]core.Row, 0, len(movements))
	for _, m := range movements {
		in, out := "", ""
		if m.Quantity.IsPositive() {
			in = formatNumber(m.Quantity, 2)
		} else {
			out = formatNumber(m.Quantity.Abs(), 2)
		}
		style := props.Text{Size: 7, Top: 1}
		if m.IsReversed() || m.IsReversal() {
			style.Color = colorRed
		}
		cell := func(s string, size int, a align.Type) core.Col {
			st := style
			st.Align = a
			st.Left, st.Right = 1, 1
			return col.New(size).Add(text.New(s, st))
		}
		rows = append(rows, row.New(6).Add(
			cell(m.PerformedAt.Format("2006-01-02 15:04"), 2, align.Left),
			cell(string(m.Type), 1, align.Left),
			cell(reference(m), 3, align.Left),
			cell(in, 1, align.Right),
			cell(out, 1, align.Right),
			cell(formatNumber(m.BalanceAfter, 2), 1, align.Right),
			cell(formatNumber(m.UnitCostBase, 4), 1, align.Right),
			cell(formatNumber(m.ValueTotal, 2), 2, align.Right),
		))
	}
	return rows
}

func footerRow(card inventory.StockCard) core.Row {
	return row.New(10).Add(col.New(12).Add(
		text.New(fmt.Sprintf("%d movements, oldest first. Rows in red are reversed movements or their reversals.",
			len(card.Movements)), props.Text{Size: 7, Color: colorGray, Top: 3}),
	))
}

// reference describes what the movement was charged to.
func reference(m *entity.StockMovement) string {
	var parts []string
	if m.ReversalOfID != nil {
		parts = append(parts, fmt.Sprintf("reversal of #%d", *m.ReversalOfID))
	}
	if m.WorkOrderID != nil {
		parts = append(parts, fmt.Sprintf("WO %d", *m.WorkOrderID))
	}
	if m.CostCenter != nil {
		parts = append(parts, *m.CostCenter)
	}
	if m.CostElement != nil {
		parts = append(parts, *m.CostElement)
	}
	if len(parts) == 0 && m.UnitInput != "" && !m.MultiplierToBase.Equal(decimal.NewFromInt(1)) {
		parts = append(parts, fmt.Sprintf("%s %s", m.QtyInput.String(), m.UnitInput))
	}
	return strings.Join(parts, " / ")
}

// formatNumber rounds d to places and groups thousands with commas: 1234567.5 -> "1,234,567.50".
func formatNumber(d decimal.Decimal, places int32) string {
	s := d.StringFixed(places)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i:]
	}
	n := len(intPart)
	if n <= 3 {
		return sign + intPart + frac
	}
	buf := make([]byte, 0, n+n/3)
	for i, c := range []byte(intPart) {
		if i > 0 && (n-i)%3 == 0 {
			buf = append(buf, ',')
		}
		buf = append(buf, c)
	}
	return sign + string(buf) + frac
}
