//go:build windows

package dispatch

import (
	"syscall"
	"unsafe"

	ole "github.com/go-ole/go-ole"
	"golang.org/x/sys/windows"

	"github.com/axonops/vectorcom/pkg/errors"
)

var iidIProvideClassInfo = ole.NewGUID("{B196B283-BAB4-101A-B69C-00AA00341D07}")

// ITypeInfo, ITypeLib and IProvideClassInfo vtable slots that go-ole does not wrap
const (
	slotProvideClassInfoGetClassInfo = 3

	slotTypeInfoGetNames             = 7
	slotTypeInfoGetRefTypeOfImplType = 8
	slotTypeInfoGetImplTypeFlags     = 9
	slotTypeInfoGetRefTypeInfo       = 14
	slotTypeInfoGetContainingTypeLib = 18
	slotTypeInfoReleaseTypeAttr      = 19

	slotTypeLibGetTypeInfoCount = 3
	slotTypeLibGetTypeInfo      = 4
	slotTypeLibGetTypeInfoType  = 5
)

const (
	tkindCoClass = 5

	implTypeFlagDefault = 0x1
	implTypeFlagSource  = 0x2
)

var (
	modoleaut32        = windows.NewLazySystemDLL("oleaut32.dll")
	procSysFreeString  = modoleaut32.NewProc("SysFreeString")
	procSysStringLen   = modoleaut32.NewProc("SysStringLen")
	errNoCoClass       = errors.New("no coclass implements the interface")
	errNoDefaultSource = errors.New("coclass has no default source interface")
)

// vcall invokes vtable slot i of the COM interface at p
func vcall(p unsafe.Pointer, slot int, args ...uintptr) uintptr {
	vtbl := *(*unsafe.Pointer)(p)
	method := *(*uintptr)(unsafe.Add(vtbl, uintptr(slot)*unsafe.Sizeof(uintptr(0))))
	rc, _, _ := syscall.SyscallN(method, append([]uintptr{uintptr(p)}, args...)...)
	return rc
}

func hresultError(rc uintptr) error {
	if int32(rc) < 0 {
		return ole.NewError(rc)
	}
	return nil
}

// sourceInterface finds the default source interface of disp's coclass and returns
// its type info and IID. The caller releases the type info.
func sourceInterface(disp *ole.IDispatch) (*ole.ITypeInfo, ole.GUID, error) {
	coclass, err := classTypeInfo(disp)
	if err != nil {
		return nil, ole.GUID{}, err
	}
	defer coclass.Release()

	attr, err := coclass.GetTypeAttr()
	if err != nil {
		return nil, ole.GUID{}, err
	}
	implTypes := int(attr.CImplTypes)
	releaseTypeAttr(coclass, attr)

	for i := 0; i < implTypes; i++ {
		var flags int32
		if err := hresultError(vcall(unsafe.Pointer(coclass), slotTypeInfoGetImplTypeFlags,
			uintptr(i), uintptr(unsafe.Pointer(&flags)))); err != nil {
			continue
		}
		if flags&(implTypeFlagDefault|implTypeFlagSource) != implTypeFlagDefault|implTypeFlagSource {
			continue
		}

		ref, err := implTypeInfo(coclass, i)
		if err != nil {
			return nil, ole.GUID{}, err
		}
		refAttr, err := ref.GetTypeAttr()
		if err != nil {
			ref.Release()
			return nil, ole.GUID{}, err
		}
		iid := refAttr.Guid
		releaseTypeAttr(ref, refAttr)
		return ref, iid, nil
	}

	return nil, ole.GUID{}, errNoDefaultSource
}

// classTypeInfo returns the coclass type info, asking the object first and falling
// back to a search of the type library for the coclass whose default interface matches
func classTypeInfo(disp *ole.IDispatch) (*ole.ITypeInfo, error) {
	if pci, err := disp.QueryInterface(iidIProvideClassInfo); err == nil {
		defer pci.Release()
		var ti *ole.ITypeInfo
		rc := vcall(unsafe.Pointer(pci), slotProvideClassInfoGetClassInfo, uintptr(unsafe.Pointer(&ti)))
		if hresultError(rc) == nil && ti != nil {
			return ti, nil
		}
	}

	iface, err := disp.GetTypeInfo()
	if err != nil {
		return nil, err
	}
	defer iface.Release()

	attr, err := iface.GetTypeAttr()
	if err != nil {
		return nil, err
	}
	want := attr.Guid
	releaseTypeAttr(iface, attr)

	var lib unsafe.Pointer
	var index uint32
	if err := hresultError(vcall(unsafe.Pointer(iface), slotTypeInfoGetContainingTypeLib,
		uintptr(unsafe.Pointer(&lib)), uintptr(unsafe.Pointer(&index)))); err != nil {
		return nil, err
	}
	defer (*ole.IUnknown)(lib).Release()

	count := int(uint32(vcall(lib, slotTypeLibGetTypeInfoCount)))
	for i := 0; i < count; i++ {
		var kind int32
		if hresultError(vcall(lib, slotTypeLibGetTypeInfoType, uintptr(i), uintptr(unsafe.Pointer(&kind)))) != nil ||
			kind != tkindCoClass {
			continue
		}
		var ti *ole.ITypeInfo
		if hresultError(vcall(lib, slotTypeLibGetTypeInfo, uintptr(i), uintptr(unsafe.Pointer(&ti)))) != nil {
			continue
		}
		if defaultInterfaceIs(ti, want) {
			return ti, nil
		}
		ti.Release()
	}

	return nil, errNoCoClass
}

func defaultInterfaceIs(coclass *ole.ITypeInfo, want ole.GUID) bool {
	attr, err := coclass.GetTypeAttr()
	if err != nil {
		return false
	}
	implTypes := int(attr.CImplTypes)
	releaseTypeAttr(coclass, attr)

	for i := 0; i < implTypes; i++ {
		var flags int32
		if hresultError(vcall(unsafe.Pointer(coclass), slotTypeInfoGetImplTypeFlags,
			uintptr(i), uintptr(unsafe.Pointer(&flags)))) != nil {
			continue
		}
		if flags&implTypeFlagDefault == 0 || flags&implTypeFlagSource != 0 {
			continue
		}
		ref, err := implTypeInfo(coclass, i)
		if err != nil {
			continue
		}
		refAttr, err := ref.GetTypeAttr()
		if err == nil {
			match := ole.IsEqualGUID(&refAttr.Guid, &want)
			releaseTypeAttr(ref, refAttr)
			ref.Release()
			return match
		}
		ref.Release()
	}
	return false
}

func implTypeInfo(coclass *ole.ITypeInfo, i int) (*ole.ITypeInfo, error) {
	var href uint32
	if err := hresultError(vcall(unsafe.Pointer(coclass), slotTypeInfoGetRefTypeOfImplType,
		uintptr(i), uintptr(unsafe.Pointer(&href)))); err != nil {
		return nil, err
	}
	var ref *ole.ITypeInfo
	if err := hresultError(vcall(unsafe.Pointer(coclass), slotTypeInfoGetRefTypeInfo,
		uintptr(href), uintptr(unsafe.Pointer(&ref)))); err != nil {
		return nil, err
	}
	return ref, nil
}

func releaseTypeAttr(ti *ole.ITypeInfo, attr *ole.TYPEATTR) {
	vcall(unsafe.Pointer(ti), slotTypeInfoReleaseTypeAttr, uintptr(unsafe.Pointer(attr)))
}

// memberName resolves a DISPID of the source interface to its declared name
func memberName(ti *ole.ITypeInfo, dispid int32) (string, bool) {
	var bstr uintptr
	var n uint32
	rc := vcall(unsafe.Pointer(ti), slotTypeInfoGetNames,
		uintptr(dispid), uintptr(unsafe.Pointer(&bstr)), 1, uintptr(unsafe.Pointer(&n)))
	if hresultError(rc) != nil || n == 0 || bstr == 0 {
		return "", false
	}
	defer procSysFreeString.Call(bstr)

	length, _, _ := procSysStringLen.Call(bstr)
	name := windows.UTF16ToString(unsafe.Slice((*uint16)(unsafe.Pointer(bstr)), int(length)))
	return name, true
}
