// Package checkpoint persists optimization progress so interrupted runs
// can resume with a start offset instead of beginning from the seed
// potentials.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/op/go-logging"
	bolt "go.etcd.io/bbolt"
)

var log = logging.MustGetLogger("checkpoint")

// bucket is the bolt bucket holding all checkpoint payloads.
var bucket = []byte("msibi")

// Data is one checkpoint payload: the iteration it was taken after and the
// potential curve of every pair, keyed by pair name.
type Data struct {
	Iteration  int
	Potentials map[string][]float64
}

// jsonFloat carries potential values through encoding/json, which rejects
// non-finite numbers. The Boltzmann-inversion update legitimately produces
// NaN and infinities in bins where an RDF vanishes, so those are encoded
// as strings.
type jsonFloat float64

func (f jsonFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	switch {
	case math.IsNaN(v):
		return []byte(`"NaN"`), nil
	case math.IsInf(v, 1):
		return []byte(`"+Inf"`), nil
	case math.IsInf(v, -1):
		return []byte(`"-Inf"`), nil
	}
	return json.Marshal(v)
}

func (f *jsonFloat) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		switch s {
		case "NaN":
			*f = jsonFloat(math.NaN())
		case "+Inf":
			*f = jsonFloat(math.Inf(1))
		case "-Inf":
			*f = jsonFloat(math.Inf(-1))
		default:
			return fmt.Errorf("checkpoint: unrecognized float %q", s)
		}
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = jsonFloat(v)
	return nil
}

// payload is the on-disk shape of Data.
type payload struct {
	Iteration  int                    `json:"iteration"`
	Potentials map[string][]jsonFloat `json:"potentials"`
}

func toPayload(data *Data) *payload {
	p := &payload{
		Iteration:  data.Iteration,
		Potentials: make(map[string][]jsonFloat, len(data.Potentials)),
	}
	for name, v := range data.Potentials {
		enc := make([]jsonFloat, len(v))
		for i, x := range v {
			enc[i] = jsonFloat(x)
		}
		p.Potentials[name] = enc
	}
	return p
}

func (p *payload) data() *Data {
	data := &Data{
		Iteration:  p.Iteration,
		Potentials: make(map[string][]float64, len(p.Potentials)),
	}
	for name, v := range p.Potentials {
		dec := make([]float64, len(v))
		for i, x := range v {
			dec[i] = float64(x)
		}
		data.Potentials[name] = dec
	}
	return data
}

// IO reads and writes checkpoints in a bolt database. A nil database makes
// every operation a no-op, so callers need no conditionals around an
// optional checkpoint.
type IO struct {
	db  *bolt.DB
	key []byte
}

// New creates an IO storing payloads under key.
func New(db *bolt.DB, key []byte) *IO {
	return &IO{db: db, key: key}
}

// Open opens (or creates) a checkpoint database at path.
func Open(path string) (*bolt.DB, error) {
	return bolt.Open(path, 0644, nil)
}

// Save serializes and stores a checkpoint.
func (c *IO) Save(data *Data) error {
	if c == nil || c.db == nil {
		return nil
	}
	raw, err := json.Marshal(toPayload(data))
	if err != nil {
		log.Error("Error serializing checkpoint:", err)
		return err
	}
	err = c.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucket)
		if err != nil {
			return err
		}
		return b.Put(c.key, raw)
	})
	if err != nil {
		log.Error("Error saving checkpoint:", err)
	}
	return err
}

// Load returns the stored checkpoint, or nil when none exists.
func (c *IO) Load() (*Data, error) {
	if c == nil || c.db == nil {
		return nil, nil
	}
	var raw []byte
	err := c.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		if v := b.Get(c.key); v != nil {
			raw = make([]byte, len(v))
			copy(raw, v)
		}
		return nil
	})
	if err != nil || raw == nil {
		return nil, err
	}

	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	data := p.data()
	log.Noticef("Found checkpoint at iteration %d with %d pair potentials", data.Iteration, len(data.Potentials))
	return data, nil
}
