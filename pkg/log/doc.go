// Package log provides structured logging built on zerolog. A single
// global Logger is configured once via Init; every long-lived component
// derives a child logger with WithComponent so its messages carry a
// component field, and WithContainerID / WithDatanodeID attach the usual
// correlation fields for per-container and per-datanode log lines.
package log
