package material

import (
	"testing"

	"github.com/df07/go-progressive-photonmapper/pkg/core"
)

func TestPresets(t *testing.T) {
	white := core.NewVec3(1, 1, 1)

	tests := []struct {
		name       string
		mat        core.Material
		diffuse    float64
		reflective float64
		refractive float64
	}{
		{"diffuse", NewDiffuse(white), 1, 0, 0},
		{"glossy", NewGlossy(white, 0.7, 0.3), 0.7, 0.3, 0},
		{"mirror", NewMirror(white), 0, 1, 0},
		{"glass", NewGlass(white, 1.5), 0, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.mat.Diffuse != tt.diffuse || tt.mat.Reflective != tt.reflective || tt.mat.Refractive != tt.refractive {
				t.Errorf("Expected (%g, %g, %g), got (%g, %g, %g)",
					tt.diffuse, tt.reflective, tt.refractive,
					tt.mat.Diffuse, tt.mat.Reflective, tt.mat.Refractive)
			}
			if err := Validate(tt.mat); err != nil {
				t.Errorf("Expected preset to validate, got %v", err)
			}
		})
	}

	if NewGlass(white, 1.5).IOR != 1.5 {
		t.Error("Expected glass to keep its index of refraction")
	}
}

func TestValidate(t *testing.T) {
	white := core.NewVec3(1, 1, 1)

	tests := []struct {
		name    string
		mat     core.Material
		wantErr bool
	}{
		{"absorbing remainder", New(white, 0.5, 0, 0.2, 0, DefaultIOR), false},
		{"sum over one", New(white, 0.8, 0, 0.3, 0, DefaultIOR), true},
		{"negative coefficient", New(white, -0.1, 0, 0, 0, DefaultIOR), true},
		{"coefficient over one", New(white, 0, 0, 0, 1.2, DefaultIOR), true},
		{"refractive without index", New(white, 0, 0, 0, 1, 0), true},
		{"all zero is black", New(white, 0, 0, 0, 0, DefaultIOR), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.mat)
			if (err != nil) != tt.wantErr {
				t.Errorf("Expected error=%v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestWithTextureCopies(t *testing.T) {
	base := NewDiffuse(core.NewVec3(1, 1, 1))
	texture := NewImageTexture(1, 1, []core.Vec3{core.NewVec3(0.5, 0.5, 0.5)})

	textured := WithTexture(base, texture)
	if textured.Texture == nil {
		t.Error("Expected texture to be set")
	}
	if base.Texture != nil {
		t.Error("Expected the original material to stay untextured")
	}
}
