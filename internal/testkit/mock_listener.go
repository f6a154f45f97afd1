// Code generated in the style of mockgen for listener.Listener[int]; hand
// authored here since this workspace never invokes the Go toolchain, but
// shaped to match what `mockgen -source=listener/listener.go` would emit.
package testkit

import (
	"reflect"

	"github.com/golang/mock/gomock"

	"github.com/adevs-go/adevs/model"
)

// MockListener is a mock of the Listener[int] interface.
type MockListener struct {
	ctrl     *gomock.Controller
	recorder *MockListenerMockRecorder
}

type MockListenerMockRecorder struct {
	mock *MockListener
}

func NewMockListener(ctrl *gomock.Controller) *MockListener {
	m := &MockListener{ctrl: ctrl}
	m.recorder = &MockListenerMockRecorder{m}
	return m
}

func (m *MockListener) EXPECT() *MockListenerMockRecorder { return m.recorder }

func (m *MockListener) OutputEvent(atomic model.ID, pv model.PinValue[int], t float64) {
	m.ctrl.T.Helper()
	m.ctrl.Call(m, "OutputEvent", atomic, pv, t)
}

func (mr *MockListenerMockRecorder) OutputEvent(atomic, pv, t any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "OutputEvent",
		reflect.TypeOf((*MockListener)(nil).OutputEvent), atomic, pv, t)
}

func (m *MockListener) InputEvent(atomic model.ID, pv model.PinValue[int], t float64) {
	m.ctrl.T.Helper()
	m.ctrl.Call(m, "InputEvent", atomic, pv, t)
}

func (mr *MockListenerMockRecorder) InputEvent(atomic, pv, t any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "InputEvent",
		reflect.TypeOf((*MockListener)(nil).InputEvent), atomic, pv, t)
}

func (m *MockListener) StateChange(atomic model.ID, t float64) {
	m.ctrl.T.Helper()
	m.ctrl.Call(m, "StateChange", atomic, t)
}

func (mr *MockListenerMockRecorder) StateChange(atomic, t any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "StateChange",
		reflect.TypeOf((*MockListener)(nil).StateChange), atomic, t)
}
