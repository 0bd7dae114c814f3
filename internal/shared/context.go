package shared

import "context"

type deviceContextKey struct{}

// ContextWithDevice stores the device in context.
func ContextWithDevice(ctx context.Context, device Device) context.Context {
	return context.WithValue(ctx, deviceContextKey{}, device)
}

// DeviceFromContext extracts the device from context.
func DeviceFromContext(ctx context.Context) (Device, bool) {
	device, ok := ctx.Value(deviceContextKey{}).(Device)
	return device, ok && device.ID != ""
}
