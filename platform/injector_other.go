//go:build !windows

package platform

func newSendInputInjector() Injector {
	return NoopInjector{}
}
