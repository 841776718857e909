/*
Package config loads the control plane's §6 configuration keys from a YAML
file using gopkg.in/yaml.v3, the same library and defaulting style the
teacher repo uses for its own config surface.

Defaults match §6 exactly; Load only needs to be pointed at a file that
overrides the keys an operator cares about. Validate catches the invariants
the zero value can't express (e.g. max.commands.per.cycle must be positive).
*/
package config
