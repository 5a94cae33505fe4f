package timit

import "testing"

import "github.com/neurlang/rsnn/datasets"
import "github.com/neurlang/rsnn/tensor"

func TestPhonemeSets(t *testing.T) {
	if len(Phonemes61) != 61 {
		t.Fatalf("full set has %d phonemes", len(Phonemes61))
	}
	if len(Phonemes39) != 39 {
		t.Fatalf("reduced set has %d phonemes: %v", len(Phonemes39), Phonemes39)
	}
	for i, p := range Phonemes61 {
		r := Reduce(int32(i))
		if p == "q" {
			if r != -1 {
				t.Errorf("q folded to %d", r)
			}
			continue
		}
		if r < 0 || int(r) >= 39 {
			t.Errorf("%s folded to %d", p, r)
		}
	}
	if Phonemes39[Reduce(3)] != "aa" {
		t.Errorf("ao folded to %s", Phonemes39[Reduce(3)])
	}
}

func writeFixture(t *testing.T) string {
	dir := t.TempDir()
	for _, name := range []string{"train", "test"} {
		x := tensor.New(2, 3, 4)
		for i := range x.Data {
			x.Data[i] = float32(i) / 10
		}
		// ao, h#, pad / q, s, pad
		y := []int32{3, 27, datasets.Masked, 46, 48, datasets.Masked}
		if err := WriteSplit(dir, name, "mfccs", x, y); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestLoadFull(t *testing.T) {
	d, err := New(writeFixture(t), "mfccs", false)
	if err != nil {
		t.Fatal(err)
	}
	x, y := d.TrainBatch()
	if x.Batch != 2 || x.Time != 3 || x.Size != 4 || d.Features() != 4 {
		t.Fatalf("shape %dx%dx%d", x.Batch, x.Time, x.Size)
	}
	if y[0] != 3 || y[2] != datasets.Masked || y[3] != 46 {
		t.Errorf("labels %v", y)
	}
	if d.NPhns() != 61 {
		t.Errorf("classes %d", d.NPhns())
	}
	if err := datasets.Check(x, y, d.Classes()); err != nil {
		t.Error(err)
	}
}

func TestLoadReduced(t *testing.T) {
	d, err := New(writeFixture(t), "mfccs", true)
	if err != nil {
		t.Fatal(err)
	}
	_, y := d.TestBatch()
	if d.Phonemes()[y[0]] != "aa" || d.Phonemes()[y[1]] != "sil" {
		t.Errorf("folded labels %v", y)
	}
	if y[3] != datasets.Masked {
		t.Errorf("q not masked: %d", y[3])
	}
	if d.Classes() != 39 {
		t.Errorf("classes %d", d.Classes())
	}
}

func TestLoadMissing(t *testing.T) {
	if _, err := New(t.TempDir(), "mfccs", false); err == nil {
		t.Error("expected error for empty directory")
	}
	if _, err := New(writeFixture(t), "fbank", false); err == nil {
		t.Error("expected error for absent preprocessing")
	}
}
