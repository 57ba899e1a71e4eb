package port

// Pusher delivers method invocations to live client connections. Delivery is
// fire-and-forget; implementations log and drop on slow or dead connections.
type Pusher interface {
	Broadcast(method string, payload any)
	// BroadcastExcept skips the named connection. An ID that matches no local
	// connection excludes nothing, which is exactly what relayed events from
	// another instance need.
	BroadcastExcept(excludeConnectionID, method string, payload any)
	SendToUser(userID, method string, payload any)
}
