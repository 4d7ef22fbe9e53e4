package entity

// Work order states relevant to stock consumption.
const (
	WorkOrderStatusOpen   = "OPEN"
	WorkOrderStatusClosed = "CLOSED"
)

// WorkOrder is the read-only view of a job that CONSUME movements are charged to.
type WorkOrder struct {
	ID          int64
	Number      string
	Title       string
	Status      string
	CostCenter  *string
	CostElement *string
}

func (w *WorkOrder) IsOpen() bool { return w.Status == WorkOrderStatusOpen }
