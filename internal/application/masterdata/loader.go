// Package masterdata loads the cost centers, cost elements and work orders that stock
// movements are charged to, from a CSV file:
//
//	# kind,code,name,active|status[,cost_center,cost_element]
//	cost_center,CC-100,Maintenance,true
//	cost_element,CE-200,Spare parts,true
//	work_order,WO-0001,Pump overhaul,OPEN,CC-100,CE-200
//
// Files exported from older ERP systems are often ISO-8859-1; pass latin1 to decode them.
package masterdata

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/SafetyDady/smart-erp-backend/internal/domain"
	"github.com/SafetyDady/smart-erp-backend/internal/domain/entity"
	"github.com/SafetyDady/smart-erp-backend/internal/domain/repository"
)

// Row kinds.
const (
	KindCostCenter  = "cost_center"
	KindCostElement = "cost_element"
	KindWorkOrder   = "work_order"
)

// CodeEntry is one cost center or cost element.
type CodeEntry struct {
	Code   string
	Name   string
	Active bool
}

// Set is the parsed content of a master data file.
type Set struct {
	CostCenters  []CodeEntry
	CostElements []CodeEntry
	WorkOrders   []entity.WorkOrder
}

// Summary counts what Apply wrote.
type Summary struct {
	CostCenters  int
	CostElements int
	WorkOrders   int
}

// Parse reads the CSV. Blank lines and lines starting with # are skipped.
func Parse(r io.Reader, latin1 bool) (*Set, error) {
	if latin1 {
		r = transform.NewReader(r, charmap.ISO8859_1.NewDecoder())
	}
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	set := &Set{}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, domain.Validationf("master data: %v", err)
		}
		line, _ := cr.FieldPos(0)
		if err := set.add(rec); err != nil {
			return nil, fmt.Errorf("master data line %d: %w", line, err)
		}
	}
	return set, nil
}

func (s *Set) add(rec []string) error {
	for i := range rec {
		rec[i] = strings.TrimSpace(rec[i])
	}
	kind := strings.ToLower(rec[0])
	switch kind {
	case KindCostCenter, KindCostElement:
		if len(rec) != 4 {
			return domain.Validationf("%s needs code,name,active", kind)
		}
		active, err := strconv.ParseBool(rec[3])
		if err != nil {
			return domain.Validationf("active flag %q is not a boolean", rec[3])
		}
		e := CodeEntry{Code: strings.ToUpper(rec[1]), Name: rec[2], Active: active}
		if e.Code == "" {
			return domain.Validationf("%s code is empty", kind)
		}
		if kind == KindCostCenter {
			s.CostCenters = append(s.CostCenters, e)
		} else {
			s.CostElements = append(s.CostElements, e)
		}
	case KindWorkOrder:
		if len(rec) < 4 || len(rec) > 6 {
			return domain.Validationf("work_order needs number,title,status[,cost_center,cost_element]")
		}
		status := strings.ToUpper(rec[3])
		if status != entity.WorkOrderStatusOpen && status != entity.WorkOrderStatusClosed {
			return domain.Validationf("work order status %q must be %s or %s", rec[3], entity.WorkOrderStatusOpen, entity.WorkOrderStatusClosed)
		}
		wo := entity.WorkOrder{Number: strings.ToUpper(rec[1]), Title: rec[2], Status: status}
		if wo.Number == "" {
			return domain.Validationf("work order number is empty")
		}
		if len(rec) > 4 {
			wo.CostCenter = optional(rec[4])
		}
		if len(rec) > 5 {
			wo.CostElement = optional(rec[5])
		}
		s.WorkOrders = append(s.WorkOrders, wo)
	default:
		return domain.Validationf("unknown row kind %q", rec[0])
	}
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	u := strings.ToUpper(s)
	return &u
}

// Apply writes the set: codes first so work orders can reference them.
func Apply(ctx context.Context, w repository.MasterDataWriter, set *Set) (Summary, error) {
	var sum Summary
	for _, e := range set.CostCenters {
		if err := w.UpsertCostCenter(ctx, e.Code, e.Name, e.Active); err != nil {
			return sum, fmt.Errorf("cost center %s: %w", e.Code, err)
		}
		sum.CostCenters++
	}
	for _, e := range set.CostElements {
		if err := w.UpsertCostElement(ctx, e.Code, e.Name, e.Active); err != nil {
			return sum, fmt.Errorf("cost element %s: %w", e.Code, err)
		}
		sum.CostElements++
	}
	for i := range set.WorkOrders {
		wo := set.WorkOrders[i]
		if err := w.CreateWorkOrder(ctx, &wo); err != nil {
			return sum, fmt.Errorf("work order %s: %w", wo.Number, err)
		}
		set.WorkOrders[i].ID = wo.ID
		sum.WorkOrders++
	}
	return sum, nil
}

// LoadFile parses path and applies it.
func LoadFile(ctx context.Context, w repository.MasterDataWriter, path string, latin1 bool) (Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return Summary{}, fmt.Errorf("open master data: %w", err)
	}
	defer f.Close()
	set, err := Parse(f, latin1)
	if err != nil {
		return Summary{}, err
	}
	return Apply(ctx, w, set)
}
