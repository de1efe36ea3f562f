package inventory

import (
	"errors"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func storedItem(name string) *Item {
	return &Item{
		Name:           name,
		NormalizedName: name,
		Quantity:       1,
		Unit:           "szt",
		Category:       "nabiał",
		Store:          "Lidl",
		UnitPrice:      2.0,
		TotalPrice:     2.0,
		PurchaseDate:   "2024-06-01",
		Status:         "available",
	}
}

func expiring(name, expiry string) *Item {
	item := storedItem(name)
	item.ExpiryDate = &expiry
	return item
}

var _ = Describe("GormDB", func() {
	var db *GormDB

	BeforeEach(func() {
		var err error
		db, err = NewGormDB(filepath.Join(GinkgoT().TempDir(), "inventory.db"))
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(db.Close()).To(Succeed())
	})

	Describe("items", func() {
		When("inserting a valid item", func() {
			It("should assign an id and round-trip the record", func() {
				id, err := db.InsertItem(storedItem("mleko"))
				Expect(err).NotTo(HaveOccurred())
				Expect(id).NotTo(BeZero())

				got, err := db.GetItem(id)
				Expect(err).NotTo(HaveOccurred())
				Expect(got.Name).To(Equal("mleko"))
				Expect(got.PurchaseDate).To(Equal("2024-06-01"))
			})
		})

		When("inserting an invalid item", func() {
			It("should return a ValidationError and store nothing", func() {
				item := storedItem("mleko")
				item.Category = ""
				item.Quantity = -1

				_, err := db.InsertItem(item)
				var verr *ValidationError
				Expect(errors.As(err, &verr)).To(BeTrue())
				Expect(verr.Violations).To(ConsistOf(
					Violation{Field: "category", Reason: "required"},
					Violation{Field: "quantity", Reason: "must not be negative"},
				))

				count, err := db.CountItems()
				Expect(err).NotTo(HaveOccurred())
				Expect(count).To(BeZero())
			})
		})

		When("getting an absent item", func() {
			It("should return a NotFoundError", func() {
				_, err := db.GetItem(42)
				var nferr *NotFoundError
				Expect(errors.As(err, &nferr)).To(BeTrue())
				Expect(nferr.ID).To(Equal(uint(42)))
			})
		})

		When("updating an item", func() {
			It("should replace the full record", func() {
				id, err := db.InsertItem(storedItem("mleko"))
				Expect(err).NotTo(HaveOccurred())

				updated := storedItem("mleko 2%")
				updated.Quantity = 3
				Expect(db.UpdateItem(id, updated)).To(Succeed())

				got, err := db.GetItem(id)
				Expect(err).NotTo(HaveOccurred())
				Expect(got.Name).To(Equal("mleko 2%"))
				Expect(got.Quantity).To(Equal(3.0))
			})
		})

		When("updating an absent item", func() {
			It("should return a NotFoundError", func() {
				err := db.UpdateItem(42, storedItem("mleko"))
				var nferr *NotFoundError
				Expect(errors.As(err, &nferr)).To(BeTrue())
			})
		})

		When("deleting an item", func() {
			It("should remove it", func() {
				id, err := db.InsertItem(storedItem("mleko"))
				Expect(err).NotTo(HaveOccurred())

				Expect(db.DeleteItem(id)).To(Succeed())

				_, err = db.GetItem(id)
				var nferr *NotFoundError
				Expect(errors.As(err, &nferr)).To(BeTrue())
			})

			It("should treat an absent id as a no-op", func() {
				Expect(db.DeleteItem(42)).To(Succeed())
			})
		})

		When("listing items", func() {
			It("should return them in insertion order", func() {
				_, err := db.InsertItem(storedItem("mleko"))
				Expect(err).NotTo(HaveOccurred())
				_, err = db.InsertItem(storedItem("chleb"))
				Expect(err).NotTo(HaveOccurred())

				items, err := db.ListItems()
				Expect(err).NotTo(HaveOccurred())
				Expect(items).To(HaveLen(2))
				Expect(items[0].Name).To(Equal("mleko"))
				Expect(items[1].Name).To(Equal("chleb"))
			})
		})
	})

	Describe("derived queries", func() {
		asOf := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

		BeforeEach(func() {
			for _, item := range []*Item{
				expiring("jogurt", "2024-05-30"),  // expired
				expiring("mleko", "2024-06-01"),   // expires today
				expiring("ser", "2024-06-03"),     // within 3 days
				expiring("masło", "2024-06-05"),   // outside 3 days
				storedItem("sól"),                 // no expiry date
			} {
				_, err := db.InsertItem(item)
				Expect(err).NotTo(HaveOccurred())
			}
		})

		It("should count only items expired strictly before the reference date", func() {
			count, err := db.CountExpired(asOf)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(int64(1)))
		})

		It("should count items expiring within the closed window", func() {
			count, err := db.CountExpiringWithin(3, asOf)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(int64(2)))
		})

		It("should ignore items without an expiry date", func() {
			count, err := db.CountExpiringWithin(365, asOf)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(int64(3)))
		})
	})

	Describe("SumSpendInMonth", func() {
		asOf := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

		spend := func(name, purchaseDate string, total float64) {
			item := storedItem(name)
			item.PurchaseDate = purchaseDate
			item.TotalPrice = total
			_, err := db.InsertItem(item)
			Expect(err).NotTo(HaveOccurred())
		}

		It("should sum to zero without matching rows", func() {
			total, err := db.SumSpendInMonth(asOf)
			Expect(err).NotTo(HaveOccurred())
			Expect(total).To(BeZero())
		})

		It("should sum purchases from the first of the month through the reference date", func() {
			spend("mleko", "2024-06-01", 3.5)
			spend("chleb", "2024-06-15", 4.5)
			spend("ser", "2024-06-20", 12.0)  // after asOf
			spend("masło", "2024-05-31", 7.0) // previous month

			total, err := db.SumSpendInMonth(asOf)
			Expect(err).NotTo(HaveOccurred())
			Expect(total).To(Equal(8.0))
		})
	})

	Describe("pending receipts", func() {
		When("adding a pending receipt", func() {
			It("should round-trip the record", func() {
				id, err := db.AddPending("receipt.jpg", "/data/receipt.jpg", "Lidl", "PARAGON")
				Expect(err).NotTo(HaveOccurred())

				got, err := db.GetPending(id)
				Expect(err).NotTo(HaveOccurred())
				Expect(got.Filename).To(Equal("receipt.jpg"))
				Expect(got.Path).To(Equal("/data/receipt.jpg"))
				Expect(got.Store).To(Equal("Lidl"))
				Expect(got.OCRText).To(Equal("PARAGON"))
				Expect(got.CreatedAt).NotTo(BeZero())
			})
		})

		When("getting an absent receipt", func() {
			It("should return a NotFoundError", func() {
				_, err := db.GetPending(42)
				var nferr *NotFoundError
				Expect(errors.As(err, &nferr)).To(BeTrue())
			})
		})

		When("updating the OCR text", func() {
			It("should replace only the text", func() {
				id, err := db.AddPending("receipt.jpg", "/data/receipt.jpg", "Lidl", "PARAG0N")
				Expect(err).NotTo(HaveOccurred())

				Expect(db.UpdatePendingText(id, "PARAGON")).To(Succeed())

				got, err := db.GetPending(id)
				Expect(err).NotTo(HaveOccurred())
				Expect(got.OCRText).To(Equal("PARAGON"))
				Expect(got.Filename).To(Equal("receipt.jpg"))
			})

			It("should return a NotFoundError for an absent receipt", func() {
				err := db.UpdatePendingText(42, "text")
				var nferr *NotFoundError
				Expect(errors.As(err, &nferr)).To(BeTrue())
			})
		})

		When("deleting a receipt", func() {
			It("should remove the metadata", func() {
				id, err := db.AddPending("receipt.jpg", "/data/receipt.jpg", "", "")
				Expect(err).NotTo(HaveOccurred())

				Expect(db.DeletePending(id)).To(Succeed())

				receipts, err := db.ListPending()
				Expect(err).NotTo(HaveOccurred())
				Expect(receipts).To(BeEmpty())
			})
		})
	})
})
