package ml

// CustomerFeatures is a feature vector that passed validation. Instances are
// only produced by Validate.
type CustomerFeatures struct {
	Age                      int     `json:"age"`
	TenureMonths             int     `json:"tenure_months"`
	MonthlyCharges           float64 `json:"monthly_charges"`
	TotalCharges             float64 `json:"total_charges"`
	SupportTickets           int     `json:"support_tickets"`
	LoginFrequency           int     `json:"login_frequency"`
	FeatureUsage             float64 `json:"feature_usage"`
	GenderEncoded            int     `json:"gender_encoded"`
	LocationEncoded          int     `json:"location_encoded"`
	ContractTypeEncoded      int     `json:"contract_type_encoded"`
	InternetServiceEncoded   int     `json:"internet_service_encoded"`
	PaymentMethodEncoded     int     `json:"payment_method_encoded"`
	ChargesPerMonth          float64 `json:"charges_per_month"`
	SupportPerMonth          float64 `json:"support_per_month"`
	LoginPerMonth            float64 `json:"login_per_month"`
	IsNewCustomer            int     `json:"is_new_customer"`
	IsHighValue              int     `json:"is_high_value"`
	HasTechSupport           int     `json:"has_tech_support"`
	HasDeviceProtection      int     `json:"has_device_protection"`
	TenureChargesInteraction float64 `json:"tenure_charges_interaction"`
	SupportValueRatio        float64 `json:"support_value_ratio"`
}

// Values returns the vector in Schema order.
func (c CustomerFeatures) Values() []float64 {
	return []float64{
		float64(c.Age),
		float64(c.TenureMonths),
		c.MonthlyCharges,
		c.TotalCharges,
		float64(c.SupportTickets),
		float64(c.LoginFrequency),
		c.FeatureUsage,
		float64(c.GenderEncoded),
		float64(c.LocationEncoded),
		float64(c.ContractTypeEncoded),
		float64(c.InternetServiceEncoded),
		float64(c.PaymentMethodEncoded),
		c.ChargesPerMonth,
		c.SupportPerMonth,
		c.LoginPerMonth,
		float64(c.IsNewCustomer),
		float64(c.IsHighValue),
		float64(c.HasTechSupport),
		float64(c.HasDeviceProtection),
		c.TenureChargesInteraction,
		c.SupportValueRatio,
	}
}

func featuresFromValues(v []float64) CustomerFeatures {
	return CustomerFeatures{
		Age:                      int(v[0]),
		TenureMonths:             int(v[1]),
		MonthlyCharges:           v[2],
		TotalCharges:             v[3],
		SupportTickets:           int(v[4]),
		LoginFrequency:           int(v[5]),
		FeatureUsage:             v[6],
		GenderEncoded:            int(v[7]),
		LocationEncoded:          int(v[8]),
		ContractTypeEncoded:      int(v[9]),
		InternetServiceEncoded:   int(v[10]),
		PaymentMethodEncoded:     int(v[11]),
		ChargesPerMonth:          v[12],
		SupportPerMonth:          v[13],
		LoginPerMonth:            v[14],
		IsNewCustomer:            int(v[15]),
		IsHighValue:              int(v[16]),
		HasTechSupport:           int(v[17]),
		HasDeviceProtection:      int(v[18]),
		TenureChargesInteraction: v[19],
		SupportValueRatio:        v[20],
	}
}
