package core

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		path string
		want ExtensionClass
	}{
		{"scripts/main.lua", ClassLua},
		{"config.json", ClassJSON},
		{"ui/atlas.plist", ClassPlist},
		{"anim/hero.ExportJson", ClassExportJSON},
		{"img/bg.png", ClassPNG},
		{"img/photo.jpg", ClassJPG},
		{"readme.txt", ClassOther},
		{"music.mp3", ClassOther},
		{"img/BG.PNG", ClassOther},
		{"anim/hero.exportjson", ClassOther},
		{"Makefile", ClassUnrecognized},
		{"archive.tar.json", ClassUnrecognized},
		{".json", ClassUnrecognized},
		{".hidden.lua", ClassUnrecognized},
		{"trailing.", ClassUnrecognized},
		{"dir.d/plain", ClassUnrecognized},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(filepath.FromSlash(tt.path)))
		})
	}
}

func TestEligibility(t *testing.T) {
	tests := []struct {
		class    ExtensionClass
		compress bool
		encrypt  bool
	}{
		{ClassLua, true, true},
		{ClassJSON, true, true},
		{ClassPlist, true, true},
		{ClassExportJSON, true, true},
		{ClassPNG, false, true},
		{ClassJPG, false, true},
		{ClassOther, false, false},
		{ClassUnrecognized, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.class.String(), func(t *testing.T) {
			assert.Equal(t, tt.compress, tt.class.CompressEligible())
			assert.Equal(t, tt.encrypt, tt.class.EncryptEligible())
		})
	}
}

func TestEncryptOutputPath(t *testing.T) {
	lua := filepath.Join("scripts", "main.lua")
	assert.Equal(t, filepath.Join("scripts", "main.luac"), EncryptOutputPath(lua))

	for _, p := range []string{"config.json", "bg.png", "hero.ExportJson", "readme.txt"} {
		assert.Equal(t, p, EncryptOutputPath(p))
	}
}
