package loader

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

// MtlMaterial is one entry of a Wavefront MTL library.
type MtlMaterial struct {
	Name string

	AmbientTexture  string
	DiffuseTexture  string
	SpecularTexture string
	OpacityMap      string

	Ambient  mgl32.Vec3
	Diffuse  mgl32.Vec3
	Specular mgl32.Vec3

	Shininess float32
	Alpha     float32
}

func newMtlMaterial(name string) MtlMaterial {
	return MtlMaterial{
		Name:      name,
		Diffuse:   mgl32.Vec3{0.7, 0.7, 0.7},
		Ambient:   mgl32.Vec3{0.1, 0.1, 0.1},
		Specular:  mgl32.Vec3{1, 1, 1},
		Shininess: 60,
		Alpha:     1,
	}
}

// LoadMTL parses the MTL library at path.
func LoadMTL(path string) ([]MtlMaterial, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseMTL(string(data))
}

// ParseMTL parses MTL library text. Unknown statements are ignored.
func ParseMTL(data string) ([]MtlMaterial, error) {
	var materials []MtlMaterial
	var curr *MtlMaterial

	for l, line := range strings.Split(data, "\n") {
		words := strings.Fields(line)
		if len(words) == 0 || strings.HasPrefix(words[0], "#") {
			continue
		}
		tag, args := words[0], words[1:]

		if tag == "newmtl" {
			if len(args) == 0 {
				return nil, fmt.Errorf("mtl line %d: newmtl without a name", l+1)
			}
			materials = append(materials, newMtlMaterial(strings.Join(args, " ")))
			curr = &materials[len(materials)-1]
			continue
		}
		if curr == nil {
			continue
		}

		var err error
		switch tag {
		case "Ka":
			curr.Ambient, err = parseColor(args)
		case "Kd":
			curr.Diffuse, err = parseColor(args)
		case "Ks":
			curr.Specular, err = parseColor(args)
		case "Ns":
			curr.Shininess, err = parseScalar(args)
		case "d":
			curr.Alpha, err = parseScalar(args)
		case "map_Ka":
			curr.AmbientTexture = strings.Join(args, " ")
		case "map_Kd":
			curr.DiffuseTexture = strings.Join(args, " ")
		case "map_Ks":
			curr.SpecularTexture = strings.Join(args, " ")
		case "map_d":
			curr.OpacityMap = strings.Join(args, " ")
		}
		if err != nil {
			return nil, fmt.Errorf("mtl line %d: %w", l+1, err)
		}
	}
	return materials, nil
}

func parseColor(args []string) (mgl32.Vec3, error) {
	if len(args) < 3 {
		return mgl32.Vec3{}, fmt.Errorf("expected 3 color components, found %d", len(args))
	}
	var c mgl32.Vec3
	for i := 0; i < 3; i++ {
		f, err := strconv.ParseFloat(args[i], 32)
		if err != nil {
			return mgl32.Vec3{}, fmt.Errorf("parsing %q: %w", args[i], err)
		}
		c[i] = float32(f)
	}
	return c, nil
}

func parseScalar(args []string) (float32, error) {
	if len(args) < 1 {
		return 0, fmt.Errorf("expected a scalar, found nothing")
	}
	f, err := strconv.ParseFloat(args[0], 32)
	if err != nil {
		return 0, fmt.Errorf("parsing %q: %w", args[0], err)
	}
	return float32(f), nil
}
