package wire

import (
	"bytes"
	"reflect"
	"strings"
	"testing"
)

func roundTrip(t *testing.T, write func(*Encoder) error) Msg {
	t.Helper()
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	if err := write(enc); err != nil {
		t.Fatalf("encode: %s", err)
	}
	dec := NewDecoder(&buf)
	if !dec.Next() {
		t.Fatalf("decode: %s", dec.Err())
	}
	return dec.Msg()
}

func TestRoundTrip(t *testing.T) {
	qid := Qid{Type: QTFILE, Version: 203, Path: 0x83208}

	cases := []struct {
		name  string
		write func(*Encoder) error
		want  Msg
	}{
		{"Tversion", func(e *Encoder) error { return e.Tversion(1<<12, "9P2000.x") },
			Tversion{Msize: 1 << 12, Version: "9P2000.x"}},
		{"Rversion", func(e *Encoder) error { return e.Rversion(1 << 11, Unknown) },
			Rversion{Msize: 1 << 11, Version: Unknown}},
		{"Tauth", func(e *Encoder) error { return e.Tauth(1, 1, "gopher", "") },
			Tauth{FTag: 1, Afid: 1, Uname: "gopher", Aname: ""}},
		{"Rauth", func(e *Encoder) error { return e.Rauth(1, qid) },
			Rauth{FTag: 1, Aqid: qid}},
		{"Tattach", func(e *Encoder) error { return e.Tattach(2, 2, NoFid, "gopher", "") },
			Tattach{FTag: 2, Fid: 2, Afid: NoFid, Uname: "gopher", Aname: ""}},
		{"Rattach", func(e *Encoder) error { return e.Rattach(2, qid) },
			Rattach{FTag: 2, Qid: qid}},
		{"Rerror", func(e *Encoder) error { return e.Rerror(0, "some error") },
			Rerror{FTag: 0, Ename: "some error"}},
		{"Tflush", func(e *Encoder) error { return e.Tflush(3, 2) },
			Tflush{FTag: 3, Oldtag: 2}},
		{"Rflush", func(e *Encoder) error { return e.Rflush(3) },
			Rflush{FTag: 3}},
		{"Twalk", func(e *Encoder) error { return e.Twalk(4, 4, 5, []string{"var", "log", "messages"}) },
			Twalk{FTag: 4, Fid: 4, Newfid: 5, Wname: []string{"var", "log", "messages"}}},
		{"Rwalk", func(e *Encoder) error { return e.Rwalk(4, []Qid{qid, qid}) },
			Rwalk{FTag: 4, Wqid: []Qid{qid, qid}}},
		{"Topen", func(e *Encoder) error { return e.Topen(0, 1, OREAD) },
			Topen{FTag: 0, Fid: 1, Mode: OREAD}},
		{"Ropen", func(e *Encoder) error { return e.Ropen(0, qid, 300) },
			Ropen{FTag: 0, Qid: qid, Iounit: 300}},
		{"Tcreate", func(e *Encoder) error { return e.Tcreate(1, 4, "frogs.txt", 0755, OWRITE) },
			Tcreate{FTag: 1, Fid: 4, Name: "frogs.txt", Perm: 0755, Mode: OWRITE}},
		{"Rcreate", func(e *Encoder) error { return e.Rcreate(1, qid, 1200) },
			Rcreate{FTag: 1, Qid: qid, Iounit: 1200}},
		{"Tread", func(e *Encoder) error { return e.Tread(0, 32, 803280, 5308) },
			Tread{FTag: 0, Fid: 32, Offset: 803280, Count: 5308}},
		{"Rread", func(e *Encoder) error { return e.Rread(0, []byte("hello, world!")) },
			Rread{FTag: 0, Data: []byte("hello, world!")}},
		{"Twrite", func(e *Encoder) error { return e.Twrite(1, 4, 10, []byte("goodbye, world!")) },
			Twrite{FTag: 1, Fid: 4, Offset: 10, Data: []byte("goodbye, world!")}},
		{"Rwrite", func(e *Encoder) error { return e.Rwrite(1, 16) },
			Rwrite{FTag: 1, Count: 16}},
		{"Tclunk", func(e *Encoder) error { return e.Tclunk(5, 4) },
			Tclunk{FTag: 5, Fid: 4}},
		{"Rclunk", func(e *Encoder) error { return e.Rclunk(5) },
			Rclunk{FTag: 5}},
		{"Tremove", func(e *Encoder) error { return e.Tremove(18, 9) },
			Tremove{FTag: 18, Fid: 9}},
		{"Rremove", func(e *Encoder) error { return e.Rremove(18) },
			Rremove{FTag: 18}},
		{"Tstat", func(e *Encoder) error { return e.Tstat(6, 13) },
			Tstat{FTag: 6, Fid: 13}},
		{"Rwstat", func(e *Encoder) error { return e.Rwstat(7) },
			Rwstat{FTag: 7}},
	}

	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			got := roundTrip(t, c.write)
			if !reflect.DeepEqual(got, c.want) {
				t.Errorf("got %#v, want %#v", got, c.want)
			}
		})
	}
}

func TestRoundTripStat(t *testing.T) {
	stat := Stat{
		Qid:    Qid{Type: QTFILE, Version: 1, Path: 42},
		Mode:   0644,
		Atime:  1000,
		Mtime:  2000,
		Length: 492,
		Name:   "georgia",
		Uid:    "gopher",
		Gid:    "gopher",
		Muid:   "",
	}

	t.Run("Rstat", func(t *testing.T) {
		got := roundTrip(t, func(e *Encoder) error { return e.Rstat(9, stat) })
		want := Rstat{FTag: 9, Stat: stat}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("got %#v, want %#v", got, want)
		}
	})

	t.Run("Twstat", func(t *testing.T) {
		got := roundTrip(t, func(e *Encoder) error { return e.Twstat(10, 3, stat) })
		want := Twstat{FTag: 10, Fid: 3, Stat: stat}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("got %#v, want %#v", got, want)
		}
	})
}

func TestTwalkTooManyElements(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	wname := make([]string, MaxWElem+1)
	for i := range wname {
		wname[i] = "x"
	}
	if err := enc.Twalk(1, 1, 2, wname); err != ErrTooManyWElem {
		t.Fatalf("Twalk with %d elements: got %v, want ErrTooManyWElem", len(wname), err)
	}
	if buf.Len() != 0 {
		t.Fatalf("Twalk rejected request wrote %d bytes, want 0", buf.Len())
	}
}

func TestTwalkLongElement(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	long := strings.Repeat("x", MaxFilenameLen+1)
	if err := enc.Twalk(1, 1, 2, []string{long}); err != ErrLongFilename {
		t.Fatalf("got %v, want ErrLongFilename", err)
	}
}

func TestDecoderFrameTooLarge(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	if err := enc.Tversion(8192, "9P2000.x"); err != nil {
		t.Fatal(err)
	}
	dec := NewDecoder(&buf)
	dec.SetMaxSize(HeaderSize + 4) // smaller than the frame just written
	if dec.Next() {
		t.Fatalf("Next succeeded decoding an oversized frame: %#v", dec.Msg())
	}
	if dec.Err() != ErrFrameTooLarge {
		t.Fatalf("got %v, want ErrFrameTooLarge", dec.Err())
	}
}

func TestDecoderShortHeader(t *testing.T) {
	dec := NewDecoder(bytes.NewReader([]byte{1, 2, 3}))
	if dec.Next() {
		t.Fatal("Next succeeded reading a truncated header")
	}
	if dec.Err() != ErrShortHeader {
		t.Fatalf("got %v, want ErrShortHeader", dec.Err())
	}
}

func TestDecoderCleanEOF(t *testing.T) {
	dec := NewDecoder(bytes.NewReader(nil))
	if dec.Next() {
		t.Fatal("Next succeeded on an empty stream")
	}
	if err := dec.Err(); err != nil {
		t.Fatalf("got %v, want nil at clean EOF", err)
	}
}

func TestDecoderMultipleMessages(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	if err := enc.Tclunk(1, 10); err != nil {
		t.Fatal(err)
	}
	if err := enc.Tclunk(2, 11); err != nil {
		t.Fatal(err)
	}
	dec := NewDecoder(&buf)
	var got []Tclunk
	for dec.Next() {
		got = append(got, dec.Msg().(Tclunk))
	}
	if dec.Err() != nil {
		t.Fatalf("unexpected error: %s", dec.Err())
	}
	want := []Tclunk{{FTag: 1, Fid: 10}, {FTag: 2, Fid: 11}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %#v, want %#v", got, want)
	}
}

func TestIsResponseFor(t *testing.T) {
	if !IsResponseFor(Tclunk, Rclunk) {
		t.Error("Rclunk should be a legal response to Tclunk")
	}
	if !IsResponseFor(Tclunk, Rerror) {
		t.Error("Rerror should be a legal response to any request")
	}
	if IsResponseFor(Tclunk, Rwalk) {
		t.Error("Rwalk should not be a legal response to Tclunk")
	}
}

func TestNegotiateVersion(t *testing.T) {
	cases := []struct {
		own, peer, want string
	}{
		{"9P2000.x", "9P2000.x", "9P2000.x"},
		{"9P2000.x", "9P2000", "9P2000"},
		{"9P2000", "9P2000.x", "9P2000"},
		{"9P2000.x", "9P2000.xyz", "9P2000.x"},
		{"9P2000.x", "9P2000.u", Unknown},
		{"9P2000.x", "2000", Unknown},
	}
	for _, c := range cases {
		if got := NegotiateVersion(c.own, c.peer); got != c.want {
			t.Errorf("NegotiateVersion(%q, %q) = %q, want %q", c.own, c.peer, got, c.want)
		}
	}
}
