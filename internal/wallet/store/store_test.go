package store

import (
    "bytes"
    "os"
    "path/filepath"
    "testing"

    "github.com/qvault/quorum-wallet/internal/wallet"
)

func testOp(nonce uint64) (*wallet.Operation, wallet.Hash) {
    op := &wallet.Operation{
        Target:         "http://127.0.0.1:9000/call",
        Value:          7,
        EffectiveTime:  100,
        ExpirationTime: 200,
        GasLimit:       wallet.MinGasLimit,
        Nonce:          nonce,
        Payload:        []byte{9, 8, 7, 6},
        Status:         wallet.StatusApproved,
        Signature:      bytes.Repeat([]byte{3}, 16),
        Signers:        [][]byte{{1, 1}, {2, 2}},
    }
    h := op.ComputeHash()
    op.HashCheckCode = wallet.CheckCode(h)
    return op, h
}

func TestOpStore_SaveLoadRoundtrip(t *testing.T) {
    s := New(t.TempDir())
    op, h := testOp(0)
    if err := s.Save(h, op); err != nil { t.Fatalf("save: %v", err) }
    got, err := s.LoadAll()
    if err != nil { t.Fatalf("load: %v", err) }
    back, ok := got[h]
    if !ok { t.Fatal("saved operation missing after load") }
    if back.Target != op.Target || back.Nonce != op.Nonce || back.Status != op.Status {
        t.Fatalf("roundtrip mismatch: %+v", back)
    }
    if !bytes.Equal(back.Payload, op.Payload) || !bytes.Equal(back.Signature, op.Signature) {
        t.Fatal("byte fields did not roundtrip")
    }
    if len(back.Signers) != 2 || !bytes.Equal(back.Signers[1], op.Signers[1]) {
        t.Fatal("signers did not roundtrip")
    }
}

func TestOpStore_SaveOverwritesRecord(t *testing.T) {
    s := New(t.TempDir())
    op, h := testOp(0)
    if err := s.Save(h, op); err != nil { t.Fatalf("save: %v", err) }
    op.Status = wallet.StatusExecuted
    if err := s.Save(h, op); err != nil { t.Fatalf("resave: %v", err) }
    got, err := s.LoadAll()
    if err != nil { t.Fatalf("load: %v", err) }
    if got[h].Status != wallet.StatusExecuted {
        t.Fatalf("status %s after overwrite", got[h].Status)
    }
}

func TestOpStore_LoadAllMissingDir(t *testing.T) {
    s := New(filepath.Join(t.TempDir(), "nonexistent"))
    got, err := s.LoadAll()
    if err != nil { t.Fatalf("load: %v", err) }
    if len(got) != 0 { t.Fatalf("%d records from missing dir", len(got)) }
}

func TestOpStore_SkipsCorruptRecord(t *testing.T) {
    dir := t.TempDir()
    s := New(dir)
    opA, hA := testOp(0)
    opB, hB := testOp(1)
    if err := s.Save(hA, opA); err != nil { t.Fatalf("save a: %v", err) }
    if err := s.Save(hB, opB); err != nil { t.Fatalf("save b: %v", err) }

    // flip one body byte in record B; its CRC no longer matches
    path := filepath.Join(dir, opFilePrefix+hB.String()+opFileSuffix)
    raw, err := os.ReadFile(path)
    if err != nil { t.Fatalf("read: %v", err) }
    raw[len(raw)-1] ^= 1
    if err := os.WriteFile(path, raw, 0o600); err != nil { t.Fatalf("write: %v", err) }

    got, err := s.LoadAll()
    if err != nil { t.Fatalf("load: %v", err) }
    if _, ok := got[hA]; !ok { t.Fatal("intact record lost") }
    if _, ok := got[hB]; ok { t.Fatal("corrupt record loaded") }
}

func TestOpStore_SkipsTruncatedRecord(t *testing.T) {
    dir := t.TempDir()
    s := New(dir)
    op, h := testOp(0)
    if err := s.Save(h, op); err != nil { t.Fatalf("save: %v", err) }
    path := filepath.Join(dir, opFilePrefix+h.String()+opFileSuffix)
    if err := os.Truncate(path, 8); err != nil { t.Fatalf("truncate: %v", err) }
    got, err := s.LoadAll()
    if err != nil { t.Fatalf("load: %v", err) }
    if len(got) != 0 { t.Fatal("truncated record loaded") }
}

func TestOpStore_IgnoresForeignFiles(t *testing.T) {
    dir := t.TempDir()
    s := New(dir)
    if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600); err != nil {
        t.Fatalf("write: %v", err)
    }
    if err := os.WriteFile(filepath.Join(dir, opFilePrefix+"zz"+opFileSuffix), []byte("x"), 0o600); err != nil {
        t.Fatalf("write: %v", err)
    }
    got, err := s.LoadAll()
    if err != nil { t.Fatalf("load: %v", err) }
    if len(got) != 0 { t.Fatalf("%d records from foreign files", len(got)) }
}

func FuzzOpStore_ReadRecord_NoPanic(f *testing.F) {
    f.Add([]byte{})
    f.Add([]byte{0x51, 0x57, 0x4f, 0x50})
    f.Fuzz(func(t *testing.T, raw []byte) {
        dir := t.TempDir()
        path := filepath.Join(dir, "op_fuzz.dat")
        if err := os.WriteFile(path, raw, 0o600); err != nil { t.Fatalf("write: %v", err) }
        _, _ = readRecord(path)
    })
}
