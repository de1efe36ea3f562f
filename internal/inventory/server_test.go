package inventory

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mkowalczyk/pantry-tracker/internal/llm"
)

var _ = Describe("Server", func() {
	var (
		db      *mockDB
		texts   *stubTexts
		backend *stubLLM
		storage *mockStorage
		server  *Server
	)

	BeforeEach(func() {
		db = newMockDB()
		texts = &stubTexts{text: "PARAGON"}
		backend = &stubLLM{}
		storage = newMockStorage()
		service := NewServiceWithDeps(db, texts, backend, storage,
			fixedTimeSource{now: time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)},
			fixedFileNamer{name: "abc123"},
		)
		server = NewServerWithMux(service, BasicAuth{}, http.NewServeMux())
	})

	request := func(method, path string, body any) *httptest.ResponseRecorder {
		var reader *bytes.Reader
		if body != nil {
			data, err := json.Marshal(body)
			Expect(err).NotTo(HaveOccurred())
			reader = bytes.NewReader(data)
		} else {
			reader = bytes.NewReader(nil)
		}
		req := httptest.NewRequest(method, path, reader)
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		server.ServeHTTP(rec, req)
		return rec
	}

	Describe("GET /api/items", func() {
		It("should return the inventory as JSON", func() {
			_, err := db.InsertItem(storedItem("mleko"))
			Expect(err).NotTo(HaveOccurred())

			rec := request("GET", "/api/items", nil)
			Expect(rec.Code).To(Equal(http.StatusOK))

			var items []Item
			Expect(json.Unmarshal(rec.Body.Bytes(), &items)).To(Succeed())
			Expect(items).To(HaveLen(1))
			Expect(items[0].Name).To(Equal("mleko"))
		})
	})

	Describe("POST /api/items", func() {
		It("should insert a valid item", func() {
			rec := request("POST", "/api/items", storedItem("mleko"))
			Expect(rec.Code).To(Equal(http.StatusCreated))

			var resp map[string]uint
			Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp["id"]).To(Equal(uint(1)))
		})

		It("should return 422 with the violation list for an invalid item", func() {
			item := storedItem("mleko")
			item.Category = ""

			rec := request("POST", "/api/items", item)
			Expect(rec.Code).To(Equal(http.StatusUnprocessableEntity))

			var resp struct {
				Violations []Violation `json:"violations"`
			}
			Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Violations).To(ConsistOf(Violation{Field: "category", Reason: "required"}))
		})
	})

	Describe("PUT /api/items/{id}", func() {
		It("should clamp negative numbers from the edit form to zero", func() {
			id, err := db.InsertItem(storedItem("mleko"))
			Expect(err).NotTo(HaveOccurred())

			updated := storedItem("mleko")
			updated.Quantity = -3

			rec := request("PUT", "/api/items/1", updated)
			Expect(rec.Code).To(Equal(http.StatusNoContent))

			got, err := db.GetItem(id)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Quantity).To(BeZero())
		})

		It("should return 404 for an absent item", func() {
			rec := request("PUT", "/api/items/42", storedItem("mleko"))
			Expect(rec.Code).To(Equal(http.StatusNotFound))
		})
	})

	Describe("DELETE /api/items/{id}", func() {
		It("should remove the item", func() {
			_, err := db.InsertItem(storedItem("mleko"))
			Expect(err).NotTo(HaveOccurred())

			rec := request("DELETE", "/api/items/1", nil)
			Expect(rec.Code).To(Equal(http.StatusNoContent))
			Expect(db.items).To(BeEmpty())
		})
	})

	Describe("POST /api/receipts", func() {
		upload := func(filename string) *httptest.ResponseRecorder {
			var buf bytes.Buffer
			writer := multipart.NewWriter(&buf)
			part, err := writer.CreateFormFile("file", filename)
			Expect(err).NotTo(HaveOccurred())
			_, err = part.Write([]byte("image bytes"))
			Expect(err).NotTo(HaveOccurred())
			Expect(writer.WriteField("store", "Lidl")).To(Succeed())
			Expect(writer.Close()).To(Succeed())

			req := httptest.NewRequest("POST", "/api/receipts", &buf)
			req.Header.Set("Content-Type", writer.FormDataContentType())
			rec := httptest.NewRecorder()
			server.ServeHTTP(rec, req)
			return rec
		}

		It("should create a pending receipt", func() {
			rec := upload("receipt.jpg")
			Expect(rec.Code).To(Equal(http.StatusCreated))

			var receipt PendingReceipt
			Expect(json.Unmarshal(rec.Body.Bytes(), &receipt)).To(Succeed())
			Expect(receipt.OCRText).To(Equal("PARAGON"))
			Expect(receipt.Store).To(Equal("Lidl"))
		})
	})

	Describe("PUT /api/receipts/{id}/text", func() {
		It("should replace the OCR text", func() {
			id, err := db.AddPending("receipt.jpg", "/receipts/receipt.jpg", "", "PARAG0N")
			Expect(err).NotTo(HaveOccurred())

			rec := request("PUT", "/api/receipts/1/text", map[string]string{"text": "PARAGON"})
			Expect(rec.Code).To(Equal(http.StatusNoContent))

			got, err := db.GetPending(id)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.OCRText).To(Equal("PARAGON"))
		})
	})

	Describe("POST /api/receipts/{id}/analyze", func() {
		BeforeEach(func() {
			_, err := db.AddPending("receipt.jpg", "/receipts/receipt.jpg", "Lidl", "PARAGON")
			Expect(err).NotTo(HaveOccurred())
		})

		It("should return the accepted and rejected records", func() {
			backend.items = []llm.RawItem{validRaw()}

			rec := request("POST", "/api/receipts/1/analyze", nil)
			Expect(rec.Code).To(Equal(http.StatusOK))

			var result AnalysisResult
			Expect(json.Unmarshal(rec.Body.Bytes(), &result)).To(Succeed())
			Expect(result.Items).To(HaveLen(1))
			Expect(result.Rejected).To(BeEmpty())
		})

		It("should surface a malformed backend response as 502 with the raw payload", func() {
			backend.err = &llm.MalformedResponseError{Raw: "not json", Err: errors.New("invalid character")}

			rec := request("POST", "/api/receipts/1/analyze", nil)
			Expect(rec.Code).To(Equal(http.StatusBadGateway))

			var resp map[string]string
			Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp["raw"]).To(Equal("not json"))
		})
	})

	Describe("POST /api/receipts/{id}/commit", func() {
		It("should insert the items and return their ids", func() {
			path, err := storage.Save("receipt.jpg", []byte("bytes"))
			Expect(err).NotTo(HaveOccurred())
			_, err = db.AddPending("receipt.jpg", path, "Lidl", "PARAGON")
			Expect(err).NotTo(HaveOccurred())

			rec := request("POST", "/api/receipts/1/commit", map[string]any{
				"items": []Item{*storedItem("mleko"), *storedItem("chleb")},
			})
			Expect(rec.Code).To(Equal(http.StatusCreated))

			var resp struct {
				IDs []uint `json:"ids"`
			}
			Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.IDs).To(HaveLen(2))
			Expect(db.pending).To(BeEmpty())
		})
	})

	Describe("GET /api/stats", func() {
		It("should return the dashboard summary", func() {
			_, err := db.InsertItem(expiring("jogurt", "2024-06-16"))
			Expect(err).NotTo(HaveOccurred())

			rec := request("GET", "/api/stats?days=3", nil)
			Expect(rec.Code).To(Equal(http.StatusOK))

			var stats Stats
			Expect(json.Unmarshal(rec.Body.Bytes(), &stats)).To(Succeed())
			Expect(stats.TotalItems).To(Equal(int64(1)))
			Expect(stats.ExpiringSoon).To(Equal(int64(1)))
		})

		It("should reject a negative window", func() {
			rec := request("GET", "/api/stats?days=-1", nil)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("basic auth", func() {
		BeforeEach(func() {
			service := NewServiceWithDeps(db, texts, backend, storage,
				fixedTimeSource{now: time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)},
				fixedFileNamer{name: "abc123"},
			)
			server = NewServerWithMux(service, BasicAuth{Username: "admin", Password: "secret"}, http.NewServeMux())
		})

		It("should reject requests without credentials", func() {
			rec := request("GET", "/api/items", nil)
			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
			Expect(rec.Header().Get("WWW-Authenticate")).To(ContainSubstring("Basic"))
		})

		It("should reject wrong credentials", func() {
			req := httptest.NewRequest("GET", "/api/items", strings.NewReader(""))
			req.SetBasicAuth("admin", "wrong")
			rec := httptest.NewRecorder()
			server.ServeHTTP(rec, req)
			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
		})

		It("should accept valid credentials", func() {
			req := httptest.NewRequest("GET", "/api/items", strings.NewReader(""))
			req.SetBasicAuth("admin", "secret")
			rec := httptest.NewRecorder()
			server.ServeHTTP(rec, req)
			Expect(rec.Code).To(Equal(http.StatusOK))
		})
	})
})
