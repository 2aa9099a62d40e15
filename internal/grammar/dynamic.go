//go:build cgo

package grammar

/*
#cgo linux LDFLAGS: -ldl
#include <dlfcn.h>
#include <stdlib.h>

typedef const void *(*grove_language_fn)(void);

static const void *grove_call_language_fn(void *fn) {
	return ((grove_language_fn)fn)();
}
*/
import "C"

import (
	"fmt"
	"unsafe"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// dlopenLoader opens grammar shared libraries with the system dynamic
// linker. Library handles are never released: a loaded language holds
// pointers into the mapped artifact for the rest of the process, so
// unloading would leave the parser dangling.
type dlopenLoader struct{}

// Load opens the artifact and resolves the tree_sitter_<language> entry
// point. The call into the artifact runs plugin-supplied initialization;
// this is a trust boundary, not a sandbox.
func (dlopenLoader) Load(path, language string) (*tree_sitter.Language, error) {
	cPath := C.CString(path)
	defer C.free(unsafe.Pointer(cPath))

	handle := C.dlopen(cPath, C.RTLD_NOW|C.RTLD_LOCAL)
	if handle == nil {
		return nil, fmt.Errorf("dlopen: %s", C.GoString(C.dlerror()))
	}

	symbol := symbolPrefix + language
	cSymbol := C.CString(symbol)
	defer C.free(unsafe.Pointer(cSymbol))

	fn := C.dlsym(handle, cSymbol)
	if fn == nil {
		return nil, fmt.Errorf("dlsym %s: %s", symbol, C.GoString(C.dlerror()))
	}

	ptr := C.grove_call_language_fn(fn)
	if ptr == nil {
		return nil, fmt.Errorf("%s returned a nil language", symbol)
	}
	return tree_sitter.NewLanguage(unsafe.Pointer(ptr)), nil
}
