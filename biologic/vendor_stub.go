//go:build !windows

package biologic

import "github.com/kjorgensen/labctl/internal/interfaces"

// NewVendor is unavailable off Windows: EClib ships only as a Windows DLL.
// Tests and non-Windows builds inject their own Vendor fake instead.
func NewVendor(libPath string) (Vendor, error) {
	return nil, interfaces.New("biologic.load-vendor", interfaces.CodeCommunicationFailed, "EClib vendor library is only available on windows")
}
