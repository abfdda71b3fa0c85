package orders

import "fmt"

type Status string

const (
	StatusInProcess Status = "in process"
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
)

var knownStatus = map[Status]bool{
	StatusInProcess: true,
	StatusSent:      true,
	StatusDelivered: true,
}

func (s Status) Valid() bool { return knownStatus[s] }

// ParseStatus accepts only the three wire values.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("unknown order status %q", s)
	}
	return st, nil
}
