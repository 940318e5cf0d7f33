// Package background manages the stock gameplay footage and music that play
// behind the narration.
package background

import (
	"embed"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/samber/lo"
	"github.com/tidwall/gjson"

	"reddit-video-maker/internal/model"
)

const (
	ModeVideo = "video"
	ModeAudio = "audio"
)

var ErrUnknownMode = errors.New("background: unknown mode")

//go:embed catalog/*.json
var defaultCatalogs embed.FS

// Catalog holds the background options per mode, keyed by lower-case name.
type Catalog struct {
	options map[string]map[string]model.BackgroundOption
	rnd     *rand.Rand
}

// LoadCatalog reads background_videos.json and background_audios.json from
// dir, falling back to the built-in lists for any file that is missing.
func LoadCatalog(dir string, rnd *rand.Rand) (*Catalog, error) {
	c := &Catalog{options: map[string]map[string]model.BackgroundOption{}, rnd: rnd}
	for _, mode := range []string{ModeVideo, ModeAudio} {
		name := fmt.Sprintf("background_%ss.json", mode)
		data, err := os.ReadFile(filepath.Join(dir, name))
		if errors.Is(err, os.ErrNotExist) || dir == "" {
			data, err = defaultCatalogs.ReadFile("catalog/" + name)
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		opts, err := ParseCatalog(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		c.options[mode] = opts
	}
	return c, nil
}

// ParseCatalog decodes name -> [uri, filename, credit, position]. The
// "__comment" key is ignored.
func ParseCatalog(data []byte) (map[string]model.BackgroundOption, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.New("invalid json")
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, errors.New("catalog must be an object")
	}

	out := map[string]model.BackgroundOption{}
	var bad error
	root.ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		if name == "__comment" {
			return true
		}
		fields := value.Array()
		if len(fields) < 3 {
			bad = fmt.Errorf("entry %q needs at least uri, filename and credit", name)
			return false
		}
		opt := model.BackgroundOption{
			Name:     strings.ToLower(name),
			URI:      fields[0].String(),
			Filename: fields[1].String(),
			Credit:   fields[2].String(),
			Position: "center",
		}
		if len(fields) > 3 && fields[3].String() != "" {
			opt.Position = fields[3].String()
		}
		out[opt.Name] = opt
		return true
	})
	if bad != nil {
		return nil, bad
	}
	if len(out) == 0 {
		return nil, errors.New("catalog is empty")
	}
	return out, nil
}

// Names lists the options of mode in sorted order.
func (c *Catalog) Names(mode string) []string {
	names := lo.Keys(c.options[mode])
	sort.Strings(names)
	return names
}

// Choose returns the option named preferred (case-insensitive). An empty or
// unknown name picks a random option.
func (c *Catalog) Choose(mode, preferred string) (model.BackgroundOption, error) {
	opts, ok := c.options[mode]
	if !ok {
		return model.BackgroundOption{}, fmt.Errorf("%w %q", ErrUnknownMode, mode)
	}
	if opt, ok := opts[strings.ToLower(strings.TrimSpace(preferred))]; ok {
		return opt, nil
	}
	names := c.Names(mode)
	return opts[names[c.rnd.Intn(len(names))]], nil
}
