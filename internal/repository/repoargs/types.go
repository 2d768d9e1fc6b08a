package repoargs

type RepositoryName string

const (
	UserRepoName    RepositoryName = "user"
	OrderRepoName   RepositoryName = "order"
	LedgerRepoName  RepositoryName = "ledger"
	ServiceRepoName RepositoryName = "service"
	DepositRepoName RepositoryName = "deposit"
)
