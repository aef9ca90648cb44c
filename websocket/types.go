package websocket

// This file contains WebSocket-specific type definitions.
// Currently, the event message type lives in types/event.go to avoid
// circular dependencies (the services package builds events too). This
// file can be used for additional WebSocket-specific types that don't
// need to be shared across packages.
