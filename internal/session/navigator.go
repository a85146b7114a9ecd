package session

import (
	"github.com/rs/zerolog"
)

// LoginPath is where fatal session loss sends the user
const LoginPath = "/login"

// Navigator performs a full navigation to a route
type Navigator interface {
	Navigate(path string)
}

// NavigatorFunc adapts a function to Navigator
type NavigatorFunc func(path string)

func (f NavigatorFunc) Navigate(path string) { f(path) }

// LogNavigator only records the navigation; used where there is no router
type LogNavigator struct {
	Log zerolog.Logger
}

func (n LogNavigator) Navigate(path string) {
	n.Log.Warn().Str("path", path).Msg("navigation requested")
}
