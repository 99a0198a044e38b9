package core

import (
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
)

// IDMUS serializes an ID as an unsigned varint.
var IDMUS = idMUS{}

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

func (idMUS) Skip(bs []byte) (n int, err error) {
	return varint.Uint64.Skip(bs)
}

// ReportMUS serializes a Report. Field order is part of the on-disk format:
// id, kind, status, the text fields in declaration order, is-person, then
// the two timestamps as Unix microseconds (0 for the zero time).
var ReportMUS = reportMUS{}

type reportMUS struct{}

func (reportMUS) Marshal(v Report, bs []byte) (n int) {
	n = IDMUS.Marshal(v.Id, bs)
	n += varint.Int.Marshal(int(v.Kind), bs[n:])
	n += varint.Int.Marshal(int(v.Status), bs[n:])
	for _, s := range reportText(&v) {
		n += ord.String.Marshal(*s, bs[n:])
	}
	n += ord.Bool.Marshal(v.IsPerson, bs[n:])
	n += varint.Int64.Marshal(unixMicro(v.ReportedAt), bs[n:])
	n += varint.Int64.Marshal(unixMicro(v.ResolvedAt), bs[n:])
	return n
}

func (reportMUS) Unmarshal(bs []byte) (v Report, n int, err error) {
	var n1 int
	v.Id, n1, err = IDMUS.Unmarshal(bs)
	n += n1
	if err != nil {
		return
	}

	var kind, status int
	kind, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Kind = Kind(kind)
	status, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Status = Status(status)

	for _, s := range reportText(&v) {
		*s, n1, err = ord.String.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}

	v.IsPerson, n1, err = ord.Bool.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}

	var micros int64
	micros, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.ReportedAt = fromUnixMicro(micros)
	micros, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.ResolvedAt = fromUnixMicro(micros)
	return
}

func (reportMUS) Size(v Report) (size int) {
	size = IDMUS.Size(v.Id)
	size += varint.Int.Size(int(v.Kind))
	size += varint.Int.Size(int(v.Status))
	for _, s := range reportText(&v) {
		size += ord.String.Size(*s)
	}
	size += ord.Bool.Size(v.IsPerson)
	size += varint.Int64.Size(unixMicro(v.ReportedAt))
	size += varint.Int64.Size(unixMicro(v.ResolvedAt))
	return size
}

func (s reportMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}

// reportText lists the string fields in wire order.
func reportText(r *Report) []*string {
	return []*string{
		&r.Title,
		&r.Description,
		&r.Category,
		&r.Location,
		&r.ContactName,
		&r.ContactPhone,
		&r.Age,
		&r.Gender,
		&r.Height,
		&r.ImageFile,
	}
}

func unixMicro(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMicro()
}

func fromUnixMicro(micros int64) time.Time {
	if micros == 0 {
		return time.Time{}
	}
	return time.UnixMicro(micros).UTC()
}
