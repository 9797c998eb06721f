package upload_test

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/marinoska/cv-ingest/features/upload"
	"github.com/marinoska/cv-ingest/internal/adapter/uploads"
)

// --- Mocks ---

type MockObjectStore struct {
	mock.Mock
}

func (m *MockObjectStore) Put(ctx context.Context, key string, data []byte, contentType string) (int64, error) {
	args := m.Called(ctx, key, data, contentType)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockObjectStore) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockObjectStore) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

type MockRecordOwner struct {
	mock.Mock
}

func (m *MockRecordOwner) Init(ctx context.Context, meta uploads.UploadMeta) (*uploads.InitResult, error) {
	args := m.Called(ctx, meta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*uploads.InitResult), args.Error(1)
}

func (m *MockRecordOwner) Finalize(ctx context.Context, req uploads.FinalizeRequest) (*uploads.FinalizeResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*uploads.FinalizeResult), args.Error(1)
}

// --- Fixtures ---

func docxBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	f, err := w.Create("word/document.xml")
	if err != nil {
		t.Fatal(err)
	}
	_, err = f.Write([]byte(`<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body><w:p><w:r><w:t>Jane Doe, Senior Engineer.</w:t></w:r></w:p></w:body>
</w:document>`))
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func docxRequest(t *testing.T) upload.UploadRequest {
	return upload.UploadRequest{
		FileName:    "cv.docx",
		ContentType: upload.ContentTypeDOCX,
		UserID:      "user-1",
		Data:        docxBytes(t),
	}
}

var initResult = &uploads.InitResult{FileID: "file-1", ObjectKey: "objects/file-1", ProcessID: "proc-1"}

// --- Tests ---

func TestHandle_Success(t *testing.T) {
	store := new(MockObjectStore)
	records := new(MockRecordOwner)
	svc := upload.NewService(store, records, 10<<20)

	req := docxRequest(t)

	records.On("Init", mock.Anything, uploads.UploadMeta{
		FileName:    "cv.docx",
		ContentType: upload.ContentTypeDOCX,
		UserID:      "user-1",
	}).Return(initResult, nil)
	store.On("Put", mock.Anything, "objects/file-1", req.Data, upload.ContentTypeDOCX).
		Return(int64(len(req.Data)), nil)
	records.On("Finalize", mock.Anything, mock.MatchedBy(func(fin uploads.FinalizeRequest) bool {
		return fin.FileID == "file-1" &&
			fin.ProcessID == "proc-1" &&
			fin.Size == int64(len(req.Data)) &&
			bytes.Contains([]byte(fin.RawText), []byte("Jane Doe")) &&
			len(fin.FileHash) == 64
	})).Return(&uploads.FinalizeResult{
		Outcome:   uploads.FinalizeCommitted,
		FileID:    "file-1",
		ProcessID: "proc-1",
	}, nil)

	result, err := svc.Handle(context.Background(), req)

	assert.NoError(t, err)
	assert.Equal(t, "file-1", result.FileID)
	assert.Equal(t, "objects/file-1", result.ObjectKey)
	assert.Equal(t, "proc-1", result.ProcessID)
	assert.False(t, result.Deduplicated)
	store.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	records.AssertExpectations(t)
}

func TestHandle_UnsupportedContentType(t *testing.T) {
	store := new(MockObjectStore)
	records := new(MockRecordOwner)
	svc := upload.NewService(store, records, 10<<20)

	_, err := svc.Handle(context.Background(), upload.UploadRequest{
		ContentType: "image/png",
		Data:        []byte("irrelevant"),
	})

	assert.ErrorIs(t, err, upload.ErrUnsupportedType)
	records.AssertNotCalled(t, "Init", mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandle_TypeMismatchRejectedBeforeAnyStore(t *testing.T) {
	store := new(MockObjectStore)
	records := new(MockRecordOwner)
	svc := upload.NewService(store, records, 10<<20)

	// Declared DOCX, actual PDF signature.
	_, err := svc.Handle(context.Background(), upload.UploadRequest{
		FileName:    "cv.docx",
		ContentType: upload.ContentTypeDOCX,
		UserID:      "user-1",
		Data:        []byte("%PDF-1.4 content"),
	})

	assert.Error(t, err)
	records.AssertNotCalled(t, "Init", mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandle_InitFailureHasNoSideEffects(t *testing.T) {
	store := new(MockObjectStore)
	records := new(MockRecordOwner)
	svc := upload.NewService(store, records, 10<<20)

	records.On("Init", mock.Anything, mock.Anything).Return(nil, errors.New("uploads api down"))

	_, err := svc.Handle(context.Background(), docxRequest(t))

	var initErr *upload.InitError
	assert.ErrorAs(t, err, &initErr)
	store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestHandle_FinalizeErrorRollsBack(t *testing.T) {
	store := new(MockObjectStore)
	records := new(MockRecordOwner)
	svc := upload.NewService(store, records, 10<<20)

	req := docxRequest(t)

	records.On("Init", mock.Anything, mock.Anything).Return(initResult, nil)
	store.On("Put", mock.Anything, "objects/file-1", req.Data, mock.Anything).Return(int64(len(req.Data)), nil)
	records.On("Finalize", mock.Anything, mock.Anything).Return(nil, errors.New("network error"))
	store.On("Delete", mock.Anything, "objects/file-1").Return(nil)

	_, err := svc.Handle(context.Background(), req)

	assert.Error(t, err)
	store.AssertCalled(t, "Delete", mock.Anything, "objects/file-1")
}

func TestHandle_FinalizeRejectedRollsBack(t *testing.T) {
	store := new(MockObjectStore)
	records := new(MockRecordOwner)
	svc := upload.NewService(store, records, 10<<20)

	req := docxRequest(t)

	records.On("Init", mock.Anything, mock.Anything).Return(initResult, nil)
	store.On("Put", mock.Anything, "objects/file-1", req.Data, mock.Anything).Return(int64(len(req.Data)), nil)
	records.On("Finalize", mock.Anything, mock.Anything).Return(&uploads.FinalizeResult{
		Outcome: uploads.FinalizeRejected,
		Reason:  "extracted text exceeds limit",
	}, nil)
	store.On("Delete", mock.Anything, "objects/file-1").Return(nil)

	_, err := svc.Handle(context.Background(), req)

	var rejected *upload.RejectedError
	assert.ErrorAs(t, err, &rejected)
	assert.Equal(t, "extracted text exceeds limit", rejected.Reason)
	store.AssertCalled(t, "Delete", mock.Anything, "objects/file-1")
}

func TestHandle_DuplicateDeletesRedundantObject(t *testing.T) {
	store := new(MockObjectStore)
	records := new(MockRecordOwner)
	svc := upload.NewService(store, records, 10<<20)

	req := docxRequest(t)

	records.On("Init", mock.Anything, mock.Anything).Return(initResult, nil)
	store.On("Put", mock.Anything, "objects/file-1", req.Data, mock.Anything).Return(int64(len(req.Data)), nil)
	records.On("Finalize", mock.Anything, mock.Anything).Return(&uploads.FinalizeResult{
		Outcome:           uploads.FinalizeDuplicate,
		ExistingFileID:    "file-0",
		ExistingProcessID: "proc-0",
	}, nil)
	store.On("Delete", mock.Anything, "objects/file-1").Return(nil)

	result, err := svc.Handle(context.Background(), req)

	assert.NoError(t, err)
	assert.True(t, result.Deduplicated)
	assert.Equal(t, "file-0", result.FileID)
	assert.Equal(t, "proc-0", result.ProcessID)
	store.AssertCalled(t, "Delete", mock.Anything, "objects/file-1")
}

func TestHandle_RollbackFailureDoesNotMaskError(t *testing.T) {
	store := new(MockObjectStore)
	records := new(MockRecordOwner)
	svc := upload.NewService(store, records, 10<<20)

	req := docxRequest(t)

	records.On("Init", mock.Anything, mock.Anything).Return(initResult, nil)
	store.On("Put", mock.Anything, "objects/file-1", req.Data, mock.Anything).Return(int64(len(req.Data)), nil)
	records.On("Finalize", mock.Anything, mock.Anything).Return(nil, errors.New("network error"))
	store.On("Delete", mock.Anything, "objects/file-1").Return(errors.New("delete failed too"))

	_, err := svc.Handle(context.Background(), req)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "network error")
}

func TestHandle_TooLarge(t *testing.T) {
	store := new(MockObjectStore)
	records := new(MockRecordOwner)
	svc := upload.NewService(store, records, 8)

	_, err := svc.Handle(context.Background(), upload.UploadRequest{
		ContentType: upload.ContentTypePDF,
		Data:        []byte("%PDF-1.4 a body larger than eight bytes"),
	})

	assert.ErrorIs(t, err, upload.ErrTooLarge)
	records.AssertNotCalled(t, "Init", mock.Anything, mock.Anything)
}

func TestHandle_StorePutFailure(t *testing.T) {
	store := new(MockObjectStore)
	records := new(MockRecordOwner)
	svc := upload.NewService(store, records, 10<<20)

	req := docxRequest(t)

	records.On("Init", mock.Anything, mock.Anything).Return(initResult, nil)
	store.On("Put", mock.Anything, "objects/file-1", req.Data, mock.Anything).
		Return(int64(0), errors.New("bucket unreachable"))

	_, err := svc.Handle(context.Background(), req)

	var storeErr *upload.StorageError
	assert.ErrorAs(t, err, &storeErr)
	records.AssertNotCalled(t, "Finalize", mock.Anything, mock.Anything)
}
