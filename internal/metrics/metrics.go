// Package metrics registers the prometheus collectors for the attendance
// pipeline. Served from /metrics in cmd/api.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ScanAccepted counts shift scans that were written.
	ScanAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "transportal_scan_accepted_total",
		Help: "Shift scans accepted and recorded.",
	})

	// ScanDuplicate counts scans rejected because the student was already
	// recorded for the shift.
	ScanDuplicate = promauto.NewCounter(prometheus.CounterOpts{
		Name: "transportal_scan_duplicate_total",
		Help: "Shift scans rejected as duplicates.",
	})

	// ScanRejected counts scans rejected for any other reason (bad payload,
	// unknown student, closed shift).
	ScanRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "transportal_scan_rejected_total",
		Help: "Shift scans rejected before the duplicate check.",
	})

	// AppointmentCheckin counts slot check-ins by resulting status.
	AppointmentCheckin = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transportal_appointment_checkin_total",
		Help: "Appointment-slot check-ins by status.",
	}, []string{"status"})
)
