// Package core implements the asset transform pipeline: tree walking,
// extension policy, the container frame format, and the compress and
// encrypt passes with their per-file staged replacement.
package core
