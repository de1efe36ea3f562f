package inventory

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Aggregate", func() {
	var (
		items      []Item
		aggregated []Item
	)

	JustBeforeEach(func() {
		aggregated = Aggregate(items)
	})

	When("two records share a normalized name and unit", func() {
		BeforeEach(func() {
			items = []Item{
				{Name: "Mleko 2%", NormalizedName: "Mleko", Unit: "l", Quantity: 1, TotalPrice: 3.5, Category: "nabiał"},
				{Name: "Mleko UHT", NormalizedName: "mleko", Unit: "L", Quantity: 2, TotalPrice: 7.0, Category: "inne"},
			}
		})

		It("should merge them into one record", func() {
			Expect(aggregated).To(HaveLen(1))
		})

		It("should sum quantity and total price", func() {
			Expect(aggregated[0].Quantity).To(Equal(3.0))
			Expect(aggregated[0].TotalPrice).To(Equal(10.5))
		})

		It("should keep the first-seen metadata", func() {
			Expect(aggregated[0].Name).To(Equal("Mleko 2%"))
			Expect(aggregated[0].Category).To(Equal("nabiał"))
		})
	})

	When("the same name appears with different units", func() {
		BeforeEach(func() {
			items = []Item{
				{NormalizedName: "mleko", Unit: "l", Quantity: 1},
				{NormalizedName: "mleko", Unit: "szt", Quantity: 1},
			}
		})

		It("should keep the records separate", func() {
			Expect(aggregated).To(HaveLen(2))
		})
	})

	When("discounts are present", func() {
		BeforeEach(func() {
			items = []Item{
				{NormalizedName: "jogurt", Unit: "szt", Quantity: 1, Discount: 0.5, TotalPrice: 2.0},
				{NormalizedName: "jogurt", Unit: "szt", Quantity: 1, Discount: 0.5, TotalPrice: 2.0},
			}
		})

		It("should sum the discounts", func() {
			Expect(aggregated).To(HaveLen(1))
			Expect(aggregated[0].Discount).To(Equal(1.0))
		})
	})

	When("the input is already aggregated", func() {
		BeforeEach(func() {
			items = Aggregate([]Item{
				{NormalizedName: "mleko", Unit: "l", Quantity: 1, TotalPrice: 3.5},
				{NormalizedName: "chleb", Unit: "szt", Quantity: 1, TotalPrice: 4.2},
				{NormalizedName: "mleko", Unit: "l", Quantity: 2, TotalPrice: 7.0},
			})
		})

		It("should return it unchanged", func() {
			Expect(aggregated).To(Equal(items))
		})
	})

	When("the input is empty", func() {
		BeforeEach(func() {
			items = nil
		})

		It("should return an empty list", func() {
			Expect(aggregated).To(BeEmpty())
		})
	})

	It("should preserve first-seen order", func() {
		got := Aggregate([]Item{
			{NormalizedName: "chleb", Unit: "szt", Quantity: 1},
			{NormalizedName: "mleko", Unit: "l", Quantity: 1},
			{NormalizedName: "chleb", Unit: "szt", Quantity: 1},
		})
		Expect(got).To(HaveLen(2))
		Expect(got[0].NormalizedName).To(Equal("chleb"))
		Expect(got[1].NormalizedName).To(Equal("mleko"))
	})
})
