package reporting

import "context"

// Reader provides the raw rows; satisfied by Repository.
type Reader interface {
	ShiftRows(ctx context.Context, search string) ([]Row, error)
	AppointmentRows(ctx context.Context, search string) ([]Row, error)
}

// Service assembles the merged attendance view.
type Service struct {
	reader Reader
}

// NewService creates the aggregation reader.
func NewService(reader Reader) *Service {
	return &Service{reader: reader}
}

// AllRecords pulls both stores, merges them, and returns one page.
func (s *Service) AllRecords(ctx context.Context, search string, req PageRequest) (Result, error) {
	shiftRows, err := s.reader.ShiftRows(ctx, search)
	if err != nil {
		return Result{}, err
	}
	apptRows, err := s.reader.AppointmentRows(ctx, search)
	if err != nil {
		return Result{}, err
	}
	return Merge(shiftRows, apptRows, req), nil
}
