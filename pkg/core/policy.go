package core

import (
	"path/filepath"
	"strings"
)

// CompiledLuaExt replaces the "lua" extension on encrypted scripts.
const CompiledLuaExt = "luac"

// ExtensionClass groups asset names by the stages they take part in.
type ExtensionClass int

const (
	ClassUnrecognized ExtensionClass = iota // Name does not split into base + one extension
	ClassOther                              // Recognised name, extension outside the policy
	ClassLua
	ClassJSON
	ClassPlist
	ClassExportJSON
	ClassPNG
	ClassJPG
)

// Extension lookup is case-sensitive.
var extensionClasses = map[string]ExtensionClass{
	"lua":        ClassLua,
	"json":       ClassJSON,
	"plist":      ClassPlist,
	"ExportJson": ClassExportJSON,
	"png":        ClassPNG,
	"jpg":        ClassJPG,
}

func (c ExtensionClass) String() string {
	switch c {
	case ClassUnrecognized:
		return "unrecognized"
	case ClassOther:
		return "other"
	case ClassLua:
		return "lua"
	case ClassJSON:
		return "json"
	case ClassPlist:
		return "plist"
	case ClassExportJSON:
		return "ExportJson"
	case ClassPNG:
		return "png"
	case ClassJPG:
		return "jpg"
	default:
		return "unknown"
	}
}

// CompressEligible reports whether the compress stage frames this class.
func (c ExtensionClass) CompressEligible() bool {
	switch c {
	case ClassLua, ClassJSON, ClassPlist, ClassExportJSON:
		return true
	}
	return false
}

// EncryptEligible reports whether the encrypt stage transforms this class.
func (c ExtensionClass) EncryptEligible() bool {
	switch c {
	case ClassLua, ClassJSON, ClassPlist, ClassExportJSON, ClassPNG, ClassJPG:
		return true
	}
	return false
}

// splitName splits a base name into stem and extension. ok is false unless
// the name holds exactly one dot with text on both sides; hidden files such
// as ".json" are therefore unrecognised.
func splitName(name string) (stem, ext string, ok bool) {
	parts := strings.Split(name, ".")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// Classify returns the extension class for the file at p.
func Classify(p string) ExtensionClass {
	_, ext, ok := splitName(filepath.Base(p))
	if !ok {
		return ClassUnrecognized
	}
	if class, found := extensionClasses[ext]; found {
		return class
	}
	return ClassOther
}

// EncryptOutputPath returns where the encrypt stage writes p. Lua scripts
// move to a sibling with the compiled extension; everything else is
// encrypted in place.
func EncryptOutputPath(p string) string {
	if Classify(p) != ClassLua {
		return p
	}
	stem, _, _ := splitName(filepath.Base(p))
	return filepath.Join(filepath.Dir(p), stem+"."+CompiledLuaExt)
}
