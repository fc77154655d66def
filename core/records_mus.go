package core

import (
	"sort"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// MUS serializers for the stored records. Timestamps are encoded as unix microseconds.
var (
	IDMUS       = idMUS{}
	FragmentMUS = fragmentMUS{}
	ManifestMUS = manifestMUS{}
)

type idMUS struct{}

func (idMUS) Marshal(v ID, bs []byte) (n int) {
	return varint.Uint64.Marshal(uint64(v), bs)
}

func (idMUS) Unmarshal(bs []byte) (v ID, n int, err error) {
	u, n, err := varint.Uint64.Unmarshal(bs)
	return ID(u), n, err
}

func (idMUS) Size(v ID) (size int) {
	return varint.Uint64.Size(uint64(v))
}

type fragmentMUS struct{}

func (fragmentMUS) Marshal(v Fragment, bs []byte) (n int) {
	n = IDMUS.Marshal(v.Id, bs)
	n += ord.String.Marshal(v.Source, bs[n:])
	n += varint.Int64.Marshal(int64(v.ChunkID), bs[n:])
	n += ord.String.Marshal(v.Text, bs[n:])
	n += IDMUS.Marshal(v.ContentHash, bs[n:])
	n += marshalVector(v.Vector, bs[n:])
	n += marshalMetadata(v.Metadata, bs[n:])
	n += marshalTime(v.InsertedAt, bs[n:])
	return n
}

func (fragmentMUS) Unmarshal(bs []byte) (v Fragment, n int, err error) {
	var n1 int
	if v.Id, n1, err = IDMUS.Unmarshal(bs); err != nil {
		return
	}
	n += n1
	if v.Source, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	var chunk int64
	if chunk, n1, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return
	}
	v.ChunkID = int(chunk)
	n += n1
	if v.Text, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.ContentHash, n1, err = IDMUS.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.Vector, n1, err = unmarshalVector(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.Metadata, n1, err = unmarshalMetadata(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.InsertedAt, n1, err = unmarshalTime(bs[n:]); err != nil {
		return
	}
	n += n1
	return
}

func (fragmentMUS) Size(v Fragment) (size int) {
	size = IDMUS.Size(v.Id)
	size += ord.String.Size(v.Source)
	size += varint.Int64.Size(int64(v.ChunkID))
	size += ord.String.Size(v.Text)
	size += IDMUS.Size(v.ContentHash)
	size += sizeVector(v.Vector)
	size += sizeMetadata(v.Metadata)
	size += sizeTime(v.InsertedAt)
	return size
}

type manifestMUS struct{}

func (manifestMUS) Marshal(v IndexManifest, bs []byte) (n int) {
	n = ord.String.Marshal(v.EmbeddingModel, bs)
	n += varint.Int64.Marshal(int64(v.Dimensions), bs[n:])
	n += marshalTime(v.CreatedAt, bs[n:])
	n += marshalTime(v.UpdatedAt, bs[n:])
	return n
}

func (manifestMUS) Unmarshal(bs []byte) (v IndexManifest, n int, err error) {
	var n1 int
	if v.EmbeddingModel, n1, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	n += n1
	var dims int64
	if dims, n1, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return
	}
	v.Dimensions = int(dims)
	n += n1
	if v.CreatedAt, n1, err = unmarshalTime(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.UpdatedAt, n1, err = unmarshalTime(bs[n:]); err != nil {
		return
	}
	n += n1
	return
}

func (manifestMUS) Size(v IndexManifest) (size int) {
	size = ord.String.Size(v.EmbeddingModel)
	size += varint.Int64.Size(int64(v.Dimensions))
	size += sizeTime(v.CreatedAt)
	size += sizeTime(v.UpdatedAt)
	return size
}

// Zero times round-trip as zero rather than the unix epoch.
func marshalTime(t time.Time, bs []byte) int {
	var micros int64
	if !t.IsZero() {
		micros = t.UnixMicro()
	}
	return varint.Int64.Marshal(micros, bs)
}

func unmarshalTime(bs []byte) (time.Time, int, error) {
	micros, n, err := varint.Int64.Unmarshal(bs)
	if err != nil || micros == 0 {
		return time.Time{}, n, err
	}
	return time.UnixMicro(micros).UTC(), n, nil
}

func sizeTime(t time.Time) int {
	if t.IsZero() {
		return varint.Int64.Size(0)
	}
	return varint.Int64.Size(t.UnixMicro())
}

func marshalVector(vec []float32, bs []byte) int {
	n := varint.Uint64.Marshal(uint64(len(vec)), bs)
	for _, f := range vec {
		n += raw.Float32.Marshal(f, bs[n:])
	}
	return n
}

func unmarshalVector(bs []byte) ([]float32, int, error) {
	length, n, err := varint.Uint64.Unmarshal(bs)
	if err != nil || length == 0 {
		return nil, n, err
	}
	vec := make([]float32, length)
	for i := range vec {
		f, n1, err := raw.Float32.Unmarshal(bs[n:])
		if err != nil {
			return nil, n, err
		}
		vec[i] = f
		n += n1
	}
	return vec, n, nil
}

func sizeVector(vec []float32) int {
	size := varint.Uint64.Size(uint64(len(vec)))
	for _, f := range vec {
		size += raw.Float32.Size(f)
	}
	return size
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func marshalMetadata(m map[string]string, bs []byte) int {
	n := varint.Uint64.Marshal(uint64(len(m)), bs)
	for _, k := range sortedKeys(m) {
		n += ord.String.Marshal(k, bs[n:])
		n += ord.String.Marshal(m[k], bs[n:])
	}
	return n
}

func unmarshalMetadata(bs []byte) (map[string]string, int, error) {
	length, n, err := varint.Uint64.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	m := make(map[string]string, length)
	for i := uint64(0); i < length; i++ {
		k, n1, err := ord.String.Unmarshal(bs[n:])
		if err != nil {
			return nil, n, err
		}
		n += n1
		v, n1, err := ord.String.Unmarshal(bs[n:])
		if err != nil {
			return nil, n, err
		}
		n += n1
		m[k] = v
	}
	return m, n, nil
}

func sizeMetadata(m map[string]string) int {
	size := varint.Uint64.Size(uint64(len(m)))
	for k, v := range m {
		size += ord.String.Size(k) + ord.String.Size(v)
	}
	return size
}
