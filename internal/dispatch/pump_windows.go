//go:build windows

package dispatch

import (
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/axonops/vectorcom/pkg/errors"
)

const (
	pmRemove = 0x0001
	wmQuit   = 0x0012
)

var (
	moduser32            = windows.NewLazySystemDLL("user32.dll")
	procPeekMessageW     = moduser32.NewProc("PeekMessageW")
	procTranslateMessage = moduser32.NewProc("TranslateMessage")
	procDispatchMessageW = moduser32.NewProc("DispatchMessageW")

	errQuitMessage = errors.New("message queue received WM_QUIT")
)

type winPoint struct {
	x, y int32
}

type msg struct {
	hwnd     windows.HWND
	message  uint32
	wParam   uintptr
	lParam   uintptr
	time     uint32
	pt       winPoint
	lPrivate uint32
}

// pumpWaitingMessages dispatches every message queued for the calling thread
func pumpWaitingMessages() error {
	var m msg
	for {
		ok, _, _ := procPeekMessageW.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0, pmRemove)
		if ok == 0 {
			return nil
		}
		if m.message == wmQuit {
			return errQuitMessage
		}
		procTranslateMessage.Call(uintptr(unsafe.Pointer(&m)))
		procDispatchMessageW.Call(uintptr(unsafe.Pointer(&m)))
	}
}
