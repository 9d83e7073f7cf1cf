// Package ioctl implements the device control channel: the command word codec, the server side
// request unpacking and response building, and the client side argument handling.
//
// A request travels as a devmsg.Msg of type devmsg.TypeDevCtl. The command word is authoritative for
// the amount of data exchanged. Payloads up to devmsg.DevCtlInlineIn bytes travel inline in the
// message, larger ones as an attachment. Responses up to devmsg.DevCtlInlineOut bytes are written
// inline, larger ones into a buffer lent by the caller.
//
// Servers usually drive a request through Begin and Call.Execute, which guarantees exactly one response
// per request and keeps malformed requests away from the device handler:
//
//	call, err := ioctl.Begin(m)
//	if err != nil {
//		return // already responded with an error status
//	}
//	call.Execute(func(req *ioctl.Request) ([]byte, error) {
//		...
//	})
package ioctl
