package store

import "github.com/pocketbook/backend/internal/domain/shared"

// Fixed document ids of the per-user layout
const (
	IncomeDocID  = "incomeDoc"
	ExpenseDocID = "expenseDoc"
	BalanceDocID = "balanceDoc"
	ExpressDocID = "expressDoc"

	// ItemsCollection is the sub-collection holding cart items under a header document
	ItemsCollection = "data"
	// OrderField is the sequence field every ordered collection is sorted by
	OrderField = "no"
)

// UserPaths is the document layout of one signed-in user
type UserPaths struct {
	Profile      DocumentRef
	Budget       CollectionRef
	Income       DocumentRef
	Expense      DocumentRef
	BalanceDoc   DocumentRef
	BalanceItems CollectionRef
	ExpressDoc   DocumentRef
	ExpressItems CollectionRef
	Receipts     CollectionRef
	List         CollectionRef
}

// PathsFor returns the document layout for the session's user
func PathsFor(session shared.Session) UserPaths {
	users := Collection("users")
	profile := users.Doc(session.UserID)
	budget := profile.Sub("budget")
	balanceDoc := profile.Sub("balance").Doc(BalanceDocID)
	expressDoc := profile.Sub("express").Doc(ExpressDocID)
	return UserPaths{
		Profile:      profile,
		Budget:       budget,
		Income:       budget.Doc(IncomeDocID),
		Expense:      budget.Doc(ExpenseDocID),
		BalanceDoc:   balanceDoc,
		BalanceItems: balanceDoc.Sub(ItemsCollection),
		ExpressDoc:   expressDoc,
		ExpressItems: expressDoc.Sub(ItemsCollection),
		Receipts:     profile.Sub("receipt"),
		List:         profile.Sub("list"),
	}
}
