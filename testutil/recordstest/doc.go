// Package recordstest provides test doubles for the records packages: an in-memory Adapter that
// records its calls, and spies for the logging, metrics and tracing interfaces.
package recordstest
