package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewMetricsWithRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsWithRegistry(reg)

	if m == nil {
		t.Fatal("NewMetricsWithRegistry returned nil")
	}
	if m.MessagesSent == nil {
		t.Error("MessagesSent metric is nil")
	}
	if m.SendErrors == nil {
		t.Error("SendErrors metric is nil")
	}
}

func TestRecordSendAndReceive(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsWithRegistry(reg)

	m.RecordSend()
	m.RecordSend()
	m.RecordReceive()

	if got := testutil.ToFloat64(m.MessagesSent); got != 2 {
		t.Errorf("MessagesSent = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.MessagesReceived); got != 1 {
		t.Errorf("MessagesReceived = %v, want 1", got)
	}
}

func TestRecordSendErrorByReason(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsWithRegistry(reg)

	m.RecordSendError("unknown_user")
	m.RecordSendError("unknown_user")
	m.RecordSendError("encrypt_failed")

	if got := testutil.ToFloat64(m.SendErrors.WithLabelValues("unknown_user")); got != 2 {
		t.Errorf("SendErrors[unknown_user] = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.SendErrors.WithLabelValues("encrypt_failed")); got != 1 {
		t.Errorf("SendErrors[encrypt_failed] = %v, want 1", got)
	}
}

func TestContactsNormalGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsWithRegistry(reg)

	m.SetContactsNormal(3)
	if got := testutil.ToFloat64(m.ContactsNormal); got != 3 {
		t.Errorf("ContactsNormal = %v, want 3", got)
	}
	m.SetContactsNormal(5)
	if got := testutil.ToFloat64(m.ContactsNormal); got != 5 {
		t.Errorf("ContactsNormal = %v, want 5", got)
	}
}

func TestRecordImageDropped(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsWithRegistry(reg)

	m.RecordImageDropped()
	m.RecordImageDropped()

	if got := testutil.ToFloat64(m.ImagesDropped); got != 2 {
		t.Errorf("ImagesDropped = %v, want 2", got)
	}
}

func TestRecordRotation(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsWithRegistry(reg)

	m.RecordRotation()
	if got := testutil.ToFloat64(m.GenerationRotations); got != 1 {
		t.Errorf("GenerationRotations = %v, want 1", got)
	}
}
