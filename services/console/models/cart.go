package models

// Cart is built by the customer app and only read by the console.
type Cart struct {
	ID     string     `json:"id,omitempty" bson:"_id,omitempty" dynamodbav:"id,omitempty"`
	UserID string     `json:"userId" bson:"userId" dynamodbav:"userId"`
	Lines  []CartLine `json:"cart" bson:"cart" dynamodbav:"cart"`
}

// CartLine references a product by id.
type CartLine struct {
	ProductID string `json:"id" bson:"id" dynamodbav:"id"`
	Quantity  int    `json:"quantity" bson:"quantity" dynamodbav:"quantity"`
}
