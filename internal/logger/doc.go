// Package logger wraps zap with a global sugared logger whose level can be
// changed at runtime, and helpers that carry named loggers in a context.
//
// Engine components log through the context they were given, so a logger
// named in Run keeps its name and fields in every component below it.
package logger
