// Package store persists operation records, one framed file per
// operation, so a restarted wallet resumes with its ledger and nonce
// counter intact.
package store

import (
    "encoding/binary"
    "encoding/hex"
    "encoding/json"
    "errors"
    "hash/crc32"
    "io"
    "os"
    "path/filepath"
    "strings"
    "sync"

    "github.com/qvault/quorum-wallet/internal/wallet"
    "github.com/qvault/quorum-wallet/pkg/logger"
    "github.com/qvault/quorum-wallet/pkg/metrics"
)

type OpStore struct { dir string; mu sync.Mutex }

func New(dir string) *OpStore { return &OpStore{dir: dir} }

var ErrCorruptRecord = errors.New("corrupt operation record")

const (
    magicOp uint32 = 0x51574f50 // 'QWOP'
    versionOp uint16 = 1
    opFilePrefix = "op_"
    opFileSuffix = ".dat"
)

type opRecord struct {
    Target         string   `json:"target"`
    Value          uint64   `json:"value"`
    EffectiveTime  int64    `json:"effective_time"`
    ExpirationTime int64    `json:"expiration_time"`
    GasLimit       uint64   `json:"gas_limit"`
    Nonce          uint64   `json:"nonce"`
    Payload        string   `json:"payload"`
    Status         uint8    `json:"status"`
    HashCheckCode  string   `json:"hash_check_code"`
    Signature      string   `json:"signature,omitempty"`
    Signers        []string `json:"signers,omitempty"`
}

func (s *OpStore) pathFor(h wallet.Hash) string {
    return filepath.Join(s.dir, opFilePrefix+h.String()+opFileSuffix)
}

func writeRecord(path string, rec opRecord) error {
    b, err := json.Marshal(rec)
    if err != nil { return err }
    if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil { return err }
    tmp := path + ".tmp"
    f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
    if err != nil { return err }
    var hdr [4 + 2 + 2 + 4 + 4]byte
    off := 0
    binary.BigEndian.PutUint32(hdr[off:], magicOp); off += 4
    binary.BigEndian.PutUint16(hdr[off:], versionOp); off += 2
    binary.BigEndian.PutUint16(hdr[off:], 0); off += 2
    binary.BigEndian.PutUint32(hdr[off:], uint32(len(b))); off += 4
    binary.BigEndian.PutUint32(hdr[off:], crc32.ChecksumIEEE(b))
    if _, err = f.Write(hdr[:]); err != nil { _ = f.Close(); return err }
    if _, err = f.Write(b); err != nil { _ = f.Close(); return err }
    if err = f.Sync(); err != nil { _ = f.Close(); return err }
    if err = f.Close(); err != nil { return err }
    return os.Rename(tmp, path)
}

func readRecord(path string) (opRecord, error) {
    f, err := os.Open(path)
    if err != nil { return opRecord{}, err }
    defer f.Close()
    var hdr [4 + 2 + 2 + 4 + 4]byte
    if _, err = io.ReadFull(f, hdr[:]); err != nil { return opRecord{}, ErrCorruptRecord }
    off := 0
    if binary.BigEndian.Uint32(hdr[off:]) != magicOp { return opRecord{}, ErrCorruptRecord }
    off += 4
    _ = binary.BigEndian.Uint16(hdr[off:]); off += 2
    off += 2
    l := binary.BigEndian.Uint32(hdr[off:]); off += 4
    want := binary.BigEndian.Uint32(hdr[off:])
    body := make([]byte, int(l))
    if _, err = io.ReadFull(f, body); err != nil { return opRecord{}, ErrCorruptRecord }
    if crc32.ChecksumIEEE(body) != want { return opRecord{}, ErrCorruptRecord }
    var rec opRecord
    if err := json.Unmarshal(body, &rec); err != nil { return opRecord{}, ErrCorruptRecord }
    return rec, nil
}

// Save writes the record for h atomically (tmp file, fsync, rename).
func (s *OpStore) Save(h wallet.Hash, op *wallet.Operation) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    if err := writeRecord(s.pathFor(h), encodeOp(op)); err != nil {
        metrics.Inc("wallet_store_total", map[string]string{"op": "save", "result": "error"})
        return err
    }
    metrics.Inc("wallet_store_total", map[string]string{"op": "save", "result": "ok"})
    return nil
}

// LoadAll reads every record under the store directory. Corrupt or
// mis-named files are skipped with a log line rather than failing the
// whole restore.
func (s *OpStore) LoadAll() (map[wallet.Hash]*wallet.Operation, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    entries, err := os.ReadDir(s.dir)
    if err != nil {
        if os.IsNotExist(err) { return map[wallet.Hash]*wallet.Operation{}, nil }
        return nil, err
    }
    out := make(map[wallet.Hash]*wallet.Operation, len(entries))
    for _, e := range entries {
        name := e.Name()
        if e.IsDir() || !strings.HasPrefix(name, opFilePrefix) || !strings.HasSuffix(name, opFileSuffix) {
            continue
        }
        h, err := wallet.HashFromHex(strings.TrimSuffix(strings.TrimPrefix(name, opFilePrefix), opFileSuffix))
        if err != nil {
            logger.ErrorJ("store_skip_record", map[string]any{"file": name, "err": "bad name"})
            continue
        }
        rec, err := readRecord(filepath.Join(s.dir, name))
        if err != nil {
            metrics.Inc("wallet_store_total", map[string]string{"op": "load", "result": "error"})
            logger.ErrorJ("store_skip_record", map[string]any{"file": name, "err": err.Error()})
            continue
        }
        op, err := decodeOp(rec)
        if err != nil {
            logger.ErrorJ("store_skip_record", map[string]any{"file": name, "err": err.Error()})
            continue
        }
        out[h] = op
    }
    metrics.Inc("wallet_store_total", map[string]string{"op": "load", "result": "ok"})
    return out, nil
}

func encodeOp(op *wallet.Operation) opRecord {
    rec := opRecord{
        Target:         op.Target,
        Value:          op.Value,
        EffectiveTime:  op.EffectiveTime,
        ExpirationTime: op.ExpirationTime,
        GasLimit:       op.GasLimit,
        Nonce:          op.Nonce,
        Payload:        hex.EncodeToString(op.Payload),
        Status:         uint8(op.Status),
        HashCheckCode:  hex.EncodeToString(op.HashCheckCode),
        Signature:      hex.EncodeToString(op.Signature),
    }
    for _, s := range op.Signers {
        rec.Signers = append(rec.Signers, hex.EncodeToString(s))
    }
    return rec
}

func decodeOp(rec opRecord) (*wallet.Operation, error) {
    payload, err := hex.DecodeString(rec.Payload)
    if err != nil { return nil, ErrCorruptRecord }
    code, err := hex.DecodeString(rec.HashCheckCode)
    if err != nil { return nil, ErrCorruptRecord }
    sig, err := hex.DecodeString(rec.Signature)
    if err != nil { return nil, ErrCorruptRecord }
    op := &wallet.Operation{
        Target:         rec.Target,
        Value:          rec.Value,
        EffectiveTime:  rec.EffectiveTime,
        ExpirationTime: rec.ExpirationTime,
        GasLimit:       rec.GasLimit,
        Nonce:          rec.Nonce,
        Payload:        payload,
        Status:         wallet.Status(rec.Status),
        HashCheckCode:  code,
        Signature:      sig,
    }
    if len(op.Signature) == 0 { op.Signature = nil }
    for _, s := range rec.Signers {
        b, err := hex.DecodeString(s)
        if err != nil { return nil, ErrCorruptRecord }
        op.Signers = append(op.Signers, b)
    }
    return op, nil
}
