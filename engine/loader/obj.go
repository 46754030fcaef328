// Package loader parses Wavefront OBJ geometry and MTL material libraries
// into mesh data ready for upload.
package loader

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/prism3d/prism/engine/gfx"
	"github.com/prism3d/prism/engine/resource"
)

// Group is one OBJ group: a face list over the file's shared vertex pool,
// with the material active when its faces were declared, if any.
type Group struct {
	Name     string
	Coords   []mgl32.Vec3
	UVs      []mgl32.Vec2
	Normals  []mgl32.Vec3
	Faces    [][3]uint32
	Material *MtlMaterial
}

// Mesh uploads the group's geometry into a new mesh. Missing normals are
// computed from the faces.
func (g *Group) Mesh(ctx gfx.Context, dynamic bool) *resource.Mesh {
	return resource.NewMesh(ctx, g.Coords, g.Faces, g.UVs, g.Normals, dynamic)
}

// vertexKey is one face corner before deduplication: indices into the file's
// raw coordinate, uv and normal lists.
type vertexKey struct {
	coord  int
	uv     int
	normal int
}

const noIndex = -1

type objParser struct {
	coords  []mgl32.Vec3
	uvs     []mgl32.Vec2
	normals []mgl32.Vec3

	groupIndex map[string]int
	groupNames []string
	groupFaces [][]vertexKey
	groupMtl   map[int]*MtlMaterial
	currGroup  int

	mtllib   map[string]MtlMaterial
	currMtl  *MtlMaterial
	baseName string
	mtlDir   string

	ignoreUVs     bool
	ignoreNormals bool
}

// LoadOBJ parses the OBJ file at path. Material libraries referenced by
// mtllib statements resolve relative to the file's directory.
func LoadOBJ(path string) ([]Group, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return ParseOBJ(string(data), base, filepath.Dir(path))
}

// ParseOBJ parses OBJ text. baseName names the default group; mtlDir is the
// directory mtllib references resolve against. A face corner without a uv or
// normal index drops that attribute for the whole file, matching the shared
// vertex pool the groups index into.
func ParseOBJ(data, baseName, mtlDir string) ([]Group, error) {
	p := &objParser{
		groupIndex: map[string]int{baseName: 0},
		groupNames: []string{baseName},
		groupFaces: [][]vertexKey{nil},
		groupMtl:   map[int]*MtlMaterial{},
		mtllib:     map[string]MtlMaterial{},
		baseName:   baseName,
		mtlDir:     mtlDir,
	}

	for l, line := range strings.Split(data, "\n") {
		words := strings.Fields(line)
		if len(words) == 0 || strings.HasPrefix(words[0], "#") {
			continue
		}
		tag, args := words[0], words[1:]

		var err error
		switch tag {
		case "v":
			err = p.parseCoord(args)
		case "vt":
			err = p.parseUV(args)
		case "vn":
			err = p.parseNormal(args)
		case "f":
			err = p.parseFace(args)
		case "g", "o":
			p.currGroup = p.group(p.baseName, strings.Join(args, " "))
			if p.currMtl != nil {
				p.groupMtl[p.currGroup] = p.currMtl
			}
		case "usemtl":
			p.useMtl(strings.Join(args, " "))
		case "mtllib":
			p.loadMtlLib(strings.Join(args, " "))
		}
		if err != nil {
			return nil, fmt.Errorf("obj line %d: %w", l+1, err)
		}
	}

	return p.build(), nil
}

func (p *objParser) parseCoord(args []string) error {
	v, err := parseVec3(args)
	if err == nil {
		p.coords = append(p.coords, v)
	}
	return err
}

func (p *objParser) parseNormal(args []string) error {
	if p.ignoreNormals {
		return nil
	}
	v, err := parseVec3(args)
	if err == nil {
		p.normals = append(p.normals, v)
	}
	return err
}

func (p *objParser) parseUV(args []string) error {
	if p.ignoreUVs {
		return nil
	}
	if len(args) < 2 {
		return fmt.Errorf("expected at least 2 texture coordinates, found %d", len(args))
	}
	u, err := strconv.ParseFloat(args[0], 32)
	if err != nil {
		return fmt.Errorf("parsing %q: %w", args[0], err)
	}
	v, err := strconv.ParseFloat(args[1], 32)
	if err != nil {
		return fmt.Errorf("parsing %q: %w", args[1], err)
	}
	p.uvs = append(p.uvs, mgl32.Vec2{float32(u), float32(v)})
	return nil
}

// parseFace accepts the four corner formats v, v/t, v//n and v/t/n.
// Polygons triangulate as a fan; degenerate faces repeat their last corner.
func (p *objParser) parseFace(args []string) error {
	g := &p.groupFaces[p.currGroup]
	count := 0
	for _, word := range args {
		key := vertexKey{coord: noIndex, uv: noIndex, normal: noIndex}
		for i, part := range strings.Split(word, "/") {
			if i > 0 && part == "" {
				continue
			}
			if i > 2 {
				return fmt.Errorf("too many indices in face corner %q", word)
			}
			idx, err := strconv.Atoi(part)
			if err != nil {
				return fmt.Errorf("parsing %q: %w", part, err)
			}
			switch i {
			case 0:
				key.coord = resolveIndex(idx, len(p.coords))
			case 1:
				key.uv = resolveIndex(idx, len(p.uvs))
			case 2:
				key.normal = resolveIndex(idx, len(p.normals))
			}
		}
		if key.coord < 0 || key.coord >= len(p.coords) {
			return fmt.Errorf("vertex index out of range in %q", word)
		}
		if key.uv == noIndex {
			p.ignoreUVs = true
		} else if !p.ignoreUVs && (key.uv < 0 || key.uv >= len(p.uvs)) {
			return fmt.Errorf("texture index out of range in %q", word)
		}
		if key.normal == noIndex {
			p.ignoreNormals = true
		} else if !p.ignoreNormals && (key.normal < 0 || key.normal >= len(p.normals)) {
			return fmt.Errorf("normal index out of range in %q", word)
		}

		if count > 2 {
			// Triangle fan: repeat the first and previous corners.
			first := (*g)[len(*g)-count]
			prev := (*g)[len(*g)-1]
			*g = append(*g, first, prev)
		}
		*g = append(*g, key)
		count++
	}

	// Not enough corners for a triangle; repeat the last one.
	for ; count > 0 && count < 3; count++ {
		*g = append(*g, (*g)[len(*g)-1])
	}
	return nil
}

// resolveIndex converts a 1-based OBJ index, possibly negative and relative
// to the end of the list, into a 0-based index.
func resolveIndex(idx, listLen int) int {
	if idx < 0 {
		return listLen + idx
	}
	return idx - 1
}

func (p *objParser) group(prefix, suffix string) int {
	name := prefix
	if suffix != "" {
		name = prefix + "/" + suffix
	}
	if i, ok := p.groupIndex[name]; ok {
		return i
	}
	p.groupIndex[name] = len(p.groupFaces)
	p.groupNames = append(p.groupNames, name)
	p.groupFaces = append(p.groupFaces, nil)
	return len(p.groupFaces) - 1
}

func (p *objParser) useMtl(name string) {
	if name == "None" {
		p.currMtl = nil
		return
	}
	m, ok := p.mtllib[name]
	if !ok {
		p.currMtl = nil
		log.Printf("warning: unknown material %q", name)
		return
	}
	mtl := m
	if _, taken := p.groupMtl[p.currGroup]; taken {
		// A second usemtl inside one group bends the format; split off a
		// fresh group for it like most importers do.
		p.currGroup = p.group(p.groupNames[p.currGroup], name)
	}
	p.groupMtl[p.currGroup] = &mtl
	p.currMtl = &mtl
}

func (p *objParser) loadMtlLib(filename string) {
	materials, err := LoadMTL(filepath.Join(p.mtlDir, filename))
	if err != nil {
		log.Printf("warning: loading material library %s: %v", filename, err)
		return
	}
	for _, m := range materials {
		p.mtllib[m.Name] = m
	}
}

// build deduplicates (coord, uv, normal) corners into one shared vertex pool
// and rewrites every group's faces against it. Normals missing from the file
// are computed from the pooled faces.
func (p *objParser) build() []Group {
	seen := map[vertexKey]uint32{}
	var poolCoords []mgl32.Vec3
	var poolUVs []mgl32.Vec2
	var poolNormals []mgl32.Vec3
	var allFaces [][3]uint32

	keepUVs := len(p.uvs) > 0 && !p.ignoreUVs
	keepNormals := len(p.normals) > 0 && !p.ignoreNormals

	resolve := func(key vertexKey) uint32 {
		if idx, ok := seen[key]; ok {
			return idx
		}
		idx := uint32(len(poolCoords))
		poolCoords = append(poolCoords, p.coords[key.coord])
		if keepUVs {
			poolUVs = append(poolUVs, p.uvs[key.uv])
		}
		if keepNormals {
			poolNormals = append(poolNormals, p.normals[key.normal])
		}
		seen[key] = idx
		return idx
	}

	groups := make([]Group, 0, len(p.groupFaces))
	groupFaceLists := make([][][3]uint32, len(p.groupFaces))
	for gi, keys := range p.groupFaces {
		faces := make([][3]uint32, 0, len(keys)/3)
		for i := 0; i+2 < len(keys); i += 3 {
			f := [3]uint32{resolve(keys[i]), resolve(keys[i+1]), resolve(keys[i+2])}
			faces = append(faces, f)
			allFaces = append(allFaces, f)
		}
		groupFaceLists[gi] = faces
	}

	if !keepNormals {
		poolNormals = resource.ComputeNormals(poolCoords, allFaces)
	}
	if !keepUVs {
		poolUVs = nil
	}

	for gi, faces := range groupFaceLists {
		if len(faces) == 0 && gi != 0 {
			continue
		}
		groups = append(groups, Group{
			Name:     p.groupNames[gi],
			Coords:   poolCoords,
			UVs:      poolUVs,
			Normals:  poolNormals,
			Faces:    faces,
			Material: p.groupMtl[gi],
		})
	}
	return groups
}

func parseVec3(args []string) (mgl32.Vec3, error) {
	if len(args) < 3 {
		return mgl32.Vec3{}, fmt.Errorf("expected 3 components, found %d", len(args))
	}
	var v mgl32.Vec3
	for i := 0; i < 3; i++ {
		f, err := strconv.ParseFloat(args[i], 32)
		if err != nil {
			return mgl32.Vec3{}, fmt.Errorf("parsing %q: %w", args[i], err)
		}
		v[i] = float32(f)
	}
	return v, nil
}
