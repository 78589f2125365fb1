// Package hue is a thin client for the Philips Hue bridge REST API.
//
// A Bridge is the root of a tree of Resource values. Each Resource is bound
// to one URL; Get and At derive child resources without any I/O, and Call
// performs a single HTTP request:
//
//	bridge := hue.NewBridge("192.168.0.45", username)
//	lights, err := bridge.Get("lights").Call(ctx)
//	_, err = bridge.Get("lights").At(1).Get("state").Call(ctx, hue.P("on", true), hue.P("bri", 200))
//	_, err = bridge.Get("groups").Call(ctx, hue.P("name", "Hall"), hue.Method("post"))
//
// Responses keep the key order of the bridge's JSON. Error objects embedded
// in array responses are returned as *BridgeError.
package hue
